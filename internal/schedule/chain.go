package schedule

import (
	"github.com/benvon/whatodo/internal/models"
	"github.com/benvon/whatodo/internal/timeutil"
)

// blockSpan is the block's own length in minutes. A block whose end reads
// earlier than its start runs past midnight. Unreadable times count as zero.
func blockSpan(b models.ScheduleBlock) int {
	d, err := timeutil.Span(b.StartTime, b.EndTime)
	if err != nil {
		return 0
	}
	return d
}

func absStart(b models.ScheduleBlock) int {
	m, err := timeutil.ToMinutes(b.StartTime)
	if err != nil {
		return b.DayOffset * timeutil.MinutesPerDay
	}
	return b.DayOffset*timeutil.MinutesPerDay + m
}

// rechain lays blocks end to end from anchor (absolute minutes), keeping each
// block's length. It modifies and returns blocks.
func rechain(blocks []models.ScheduleBlock, anchor int) []models.ScheduleBlock {
	cursor := anchor
	for i := range blocks {
		d := blockSpan(blocks[i])
		c := timeutil.Split(cursor)
		blocks[i].StartTime = c.String()
		blocks[i].DayOffset = c.Day
		blocks[i].EndTime = timeutil.ToTimeString(cursor + d)
		cursor += d
	}
	return blocks
}

// annotateDays sets DayOffset on a verbatim sequence. A start that reads
// earlier than the previous one is on the next day only when the previous
// block ran past midnight or the step back is more than half a day; a smaller
// step back is an out-of-order block on the same day.
func annotateDays(blocks []models.ScheduleBlock) []models.ScheduleBlock {
	if len(blocks) == 0 {
		return blocks
	}
	day := blocks[0].DayOffset
	prev, err := timeutil.ToMinutes(blocks[0].StartTime)
	if err != nil {
		return blocks
	}
	prevWraps := wrapsMidnight(blocks[0])
	for i := 1; i < len(blocks); i++ {
		m, err := timeutil.ToMinutes(blocks[i].StartTime)
		if err != nil {
			return blocks
		}
		if back := prev - m; back > 0 && (prevWraps || back > timeutil.MinutesPerDay/2) {
			day++
		}
		blocks[i].DayOffset = day
		prev = m
		prevWraps = wrapsMidnight(blocks[i])
	}
	return blocks
}

// wrapsMidnight reports a block whose end reads earlier than its start
func wrapsMidnight(b models.ScheduleBlock) bool {
	d, err := timeutil.Duration(b.StartTime, b.EndTime)
	return err == nil && d < 0
}

// IsContiguous reports whether every block ends where the next one starts
func IsContiguous(blocks []models.ScheduleBlock) bool {
	for i := 0; i+1 < len(blocks); i++ {
		if blocks[i].EndTime != blocks[i+1].StartTime {
			return false
		}
	}
	return true
}
