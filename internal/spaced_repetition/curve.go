package spaced_repetition

import (
	"errors"
	"fmt"
	"time"

	"github.com/example/studybuddy/pkg/models"
)

// DefaultOffsets are the review intervals in days after upload
var DefaultOffsets = []int{0, 1, 3, 7, 14, 30}

// Curve is a fixed spaced-repetition schedule expressed as day offsets
type Curve struct {
	offsets []int
}

// NewCurve validates offsets: non-empty, non-negative and strictly ascending
func NewCurve(offsets []int) (*Curve, error) {
	if len(offsets) == 0 {
		return nil, errors.New("review curve needs at least one offset")
	}
	for i, off := range offsets {
		if off < 0 {
			return nil, fmt.Errorf("review offset %d is negative", off)
		}
		if i > 0 && off <= offsets[i-1] {
			return nil, fmt.Errorf("review offsets must be ascending, got %d after %d", off, offsets[i-1])
		}
	}
	return &Curve{offsets: append([]int(nil), offsets...)}, nil
}

// DefaultCurve returns the 0/1/3/7/14/30 day curve
func DefaultCurve() *Curve {
	return &Curve{offsets: append([]int(nil), DefaultOffsets...)}
}

// Dates returns one calendar day per offset, in offset order
func (c *Curve) Dates(uploadDate time.Time) []time.Time {
	day := models.Day(uploadDate)
	dates := make([]time.Time, len(c.offsets))
	for i, off := range c.offsets {
		dates[i] = day.AddDate(0, 0, off)
	}
	return dates
}

// Tasks builds the pending review tasks of a material uploaded on uploadDate
func (c *Curve) Tasks(materialID int64, uploadDate time.Time) []models.ReviewTask {
	dates := c.Dates(uploadDate)
	tasks := make([]models.ReviewTask, len(dates))
	for i, d := range dates {
		tasks[i] = models.ReviewTask{
			MaterialID: materialID,
			ReviewDate: models.FormatDate(d),
			Done:       false,
		}
	}
	return tasks
}
