package dto

import "time"

// UsageRow is one joined row of the usage report
type UsageRow struct {
	RequestID     int64      `json:"requestId"`
	StudentName   string     `json:"studentName"`
	StudentEmail  string     `json:"studentEmail"`
	ComponentName string     `json:"componentName"`
	Quantity      int        `json:"quantity"`
	Status        string     `json:"status"`
	RequestDate   time.Time  `json:"requestDate"`
	ReturnDate    *time.Time `json:"returnDate,omitempty"`
}

// UsageReport is the mentor-facing usage report
type UsageReport struct {
	Rows        []UsageRow     `json:"rows"`
	StatusCount map[string]int `json:"statusCounts"`
	GeneratedAt time.Time      `json:"generatedAt"`
}
