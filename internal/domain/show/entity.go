package show

import "time"

// Status は上映の状態を表す
type Status string

const (
	StatusScheduled Status = "SCHEDULED"
	StatusCanceled  Status = "CANCELED"
)

// Show は上映エンティティを表す
// 座席の集合はスクリーン（RoomID）の座席レイアウトで決まる
type Show struct {
	ID        string
	CinemaID  string
	MovieID   string
	RoomID    string
	StartTime time.Time
	EndTime   time.Time
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewShow は新しい上映を作成する
func NewShow(cinemaID, movieID, roomID string, startTime, endTime time.Time) *Show {
	now := time.Now()
	return &Show{
		CinemaID:  cinemaID,
		MovieID:   movieID,
		RoomID:    roomID,
		StartTime: startTime,
		EndTime:   endTime,
		Status:    StatusScheduled,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate は上映の検証を行う
func (s *Show) Validate() error {
	if s.CinemaID == "" {
		return ErrCinemaIDRequired
	}
	if s.MovieID == "" {
		return ErrMovieIDRequired
	}
	if s.RoomID == "" {
		return ErrRoomIDRequired
	}
	if !s.EndTime.After(s.StartTime) {
		return ErrInvalidShowTime
	}
	return nil
}

// IsBookable は指定時刻に座席を押さえられるかを返す
func (s *Show) IsBookable(now time.Time) bool {
	return s.Status == StatusScheduled && s.StartTime.After(now)
}

// Cancel は上映を中止する
func (s *Show) Cancel() error {
	if s.Status == StatusCanceled {
		return ErrShowAlreadyCanceled
	}
	s.Status = StatusCanceled
	s.UpdatedAt = time.Now()
	return nil
}
