package model

import "encoding/json"

// FollowUp: отклик с предстоящей датой follow-up.
type FollowUp struct {
	ID           string `json:"id"`
	Company      string `json:"company"`
	Role         string `json:"role"`
	FollowUpDate string `json:"follow_up_date"`
}

// Stats: ответ GET /applications/stats/summary.
// Backend отдаёт список upcoming_followups, старые клиенты ожидали
// число upcoming_follow_ups; принимаются оба варианта.
type Stats struct {
	TotalApplications int            `json:"total_applications"`
	ByStatus          map[Status]int `json:"by_status"`

	upcomingCount int
	upcoming      []FollowUp
}

// UnmarshalJSON разбирает обе формы поля follow-up.
func (s *Stats) UnmarshalJSON(data []byte) error {
	var aux struct {
		TotalApplications int             `json:"total_applications"`
		ByStatus          map[Status]int  `json:"by_status"`
		UpcomingCount     json.RawMessage `json:"upcoming_follow_ups"`
		UpcomingList      []FollowUp      `json:"upcoming_followups"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	s.TotalApplications = aux.TotalApplications
	s.ByStatus = aux.ByStatus
	s.upcoming = aux.UpcomingList
	s.upcomingCount = len(aux.UpcomingList)

	if len(aux.UpcomingCount) > 0 {
		var n int
		if err := json.Unmarshal(aux.UpcomingCount, &n); err == nil {
			s.upcomingCount = n
		} else {
			var list []FollowUp
			if err := json.Unmarshal(aux.UpcomingCount, &list); err != nil {
				return err
			}
			s.upcoming = list
			s.upcomingCount = len(list)
		}
	}
	return nil
}

// NewStats собирает сводку (для тестов и fallback-расчёта).
func NewStats(total int, byStatus map[Status]int, upcoming []FollowUp) *Stats {
	return &Stats{
		TotalApplications: total,
		ByStatus:          byStatus,
		upcoming:          upcoming,
		upcomingCount:     len(upcoming),
	}
}

// UpcomingCount: число предстоящих follow-up.
func (s *Stats) UpcomingCount() int { return s.upcomingCount }

// Upcoming: список предстоящих follow-up (может быть пустым).
func (s *Stats) Upcoming() []FollowUp { return s.upcoming }

// StatusCount: количество по статусу (0, если статус отсутствует).
func (s *Stats) StatusCount(st Status) int {
	return s.ByStatus[st]
}
