package domain

// PerformanceEntry is one scored data point in a student's per-subject
// performance series.
type PerformanceEntry struct {
	StudentID string `json:"-"`
	Subject   string `json:"subject"`
	Date      string `json:"date"`
	Score     int    `json:"score"`
}

// StatusCount counts assignments in one status.
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// SubjectStat aggregates assignment scores for one subject.
type SubjectStat struct {
	Subject          string  `json:"subject"`
	AvgScore         float64 `json:"avg_score"`
	TotalAssignments int     `json:"total_assignments"`
}

// SubjectCount counts classified chat messages for one subject.
type SubjectCount struct {
	Subject string `json:"subject"`
	Count   int    `json:"count"`
}

// Progress is the analytics summary for one student.
type Progress struct {
	AssignmentStats    []StatusCount  `json:"assignmentStats"`
	SubjectPerformance []SubjectStat  `json:"subjectPerformance"`
	ChatActivity       int            `json:"chatActivity"`
	ChatSubjects       []SubjectCount `json:"chatSubjects"`
}
