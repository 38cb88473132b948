package filter

import "github.com/vilaca/branch-dashboard/internal/domain"

// Summary holds the aggregate counts shown above the branch list.
type Summary struct {
	Total     int `json:"total"`
	Success   int `json:"success"`
	Failed    int `json:"failed"`
	Building  int `json:"building"`
	Protected int `json:"protected"`
}

// Summarize counts records by status and protection.
func Summarize(records []domain.Branch) Summary {
	s := Summary{Total: len(records)}
	for _, b := range records {
		switch b.Status {
		case domain.StatusSuccess:
			s.Success++
		case domain.StatusFailed:
			s.Failed++
		case domain.StatusBuilding:
			s.Building++
		}
		if b.Protected {
			s.Protected++
		}
	}
	return s
}
