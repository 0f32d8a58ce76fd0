package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ChallengeDays is the fixed length of every challenge window.
const ChallengeDays = 21

// UserChallenge is one user's enrolment in one challenge: a start date and
// one completion flag per day of the window.
//
// (UserID, ChallengeID) is UNIQUE. Repeated saves for the same pair update
// the existing row instead of inserting a new one.
type UserChallenge struct {
	ID          int64       `json:"id"          db:"id"`
	UserID      string      `json:"userId"      db:"user_id"`
	ChallengeID int64       `json:"challengeId" db:"challenge_id"`
	DailyStatus DailyStatus `json:"dailyStatus" db:"daily_status"`
	StartDate   Date        `json:"startDate"   db:"start_date"`
	CreatedAt   time.Time   `json:"-"           db:"created_at"`
	UpdatedAt   time.Time   `json:"-"           db:"updated_at"`
}

// ParticipantProgress is a progress row joined to its user. Nickname and
// ProfilePictureURL are nil when the user row could not be resolved.
type ParticipantProgress struct {
	UserID            string
	DailyStatus       DailyStatus
	Nickname          *string
	ProfilePictureURL *string
}

// CommunityEntry is one line of a challenge's community board.
type CommunityEntry struct {
	Nickname          string `json:"nickname"`
	CompletionRate    int    `json:"completionRate"`
	ProfilePictureURL string `json:"profilePictureUrl"`
}

// DailyStatus holds one flag per challenge day; index 0 is day 1.
type DailyStatus []bool

// NewDailyStatus returns an all-false status for a fresh enrolment.
func NewDailyStatus() DailyStatus {
	return make(DailyStatus, ChallengeDays)
}

// Valid reports whether s has exactly ChallengeDays entries.
func (s DailyStatus) Valid() bool {
	return len(s) == ChallengeDays
}

// CompletedDays counts the days marked done.
func (s DailyStatus) CompletedDays() int {
	n := 0
	for _, done := range s {
		if done {
			n++
		}
	}
	return n
}

// CompletionRate is the floored percentage of the 21 days marked done.
func (s DailyStatus) CompletionRate() int {
	return s.CompletedDays() * 100 / ChallengeDays
}

func (s DailyStatus) at(i int) bool {
	return i >= 0 && i < len(s) && s[i]
}

// FirstLockedChange returns the first day index that next is not allowed
// to set, given the previously stored status (nil for a new enrolment).
//
// Rules, with day i falling on start+i:
//   - a new enrolment may not mark any day after today as done;
//   - an existing enrolment may only change today's slot.
func (s DailyStatus) FirstLockedChange(prev DailyStatus, start, today Date) (int, bool) {
	if prev == nil {
		for i, done := range s {
			if done && start.AddDays(i).After(today) {
				return i, true
			}
		}
		return 0, false
	}

	todayIndex := today.DaysSince(start)
	for i := range s {
		if i == todayIndex {
			continue
		}
		if s.at(i) != prev.at(i) {
			return i, true
		}
	}
	return 0, false
}

// Date is a calendar day without a time of day, kept as midnight UTC.
//
// JSON: encodes as "2006-01-02T00:00:00.000Z", which is what the frontend
// splits on "T"; decodes from either "2006-01-02" or an RFC 3339 timestamp.
type Date struct {
	t time.Time
}

const (
	dateLayout     = "2006-01-02"
	dateJSONLayout = "2006-01-02T15:04:05.000Z"
)

// NewDate builds a Date from its parts.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day t falls on in loc.
func DateOf(t time.Time, loc *time.Location) Date {
	if loc != nil {
		t = t.In(loc)
	}
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// ParseDate accepts "2006-01-02" or an RFC 3339 timestamp; timestamps are
// reduced to their UTC calendar day.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return DateOf(t, time.UTC), nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return Date{}, fmt.Errorf("model: invalid date %q", s)
	}
	return DateOf(t, time.UTC), nil
}

// IsZero reports whether d is unset.
func (d Date) IsZero() bool { return d.t.IsZero() }

// Time returns midnight UTC of d.
func (d Date) Time() time.Time { return d.t }

// String formats d as YYYY-MM-DD. This is also the stored form.
func (d Date) String() string { return d.t.Format(dateLayout) }

// AddDays returns the date n days after d.
func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }

// DaysSince returns the number of days from other to d.
func (d Date) DaysSince(other Date) int {
	return int(d.t.Sub(other.t).Hours() / 24)
}

func (d Date) Before(other Date) bool { return d.t.Before(other.t) }
func (d Date) After(other Date) bool  { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool  { return d.t.Equal(other.t) }

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(strconv.Quote(d.t.Format(dateJSONLayout))), nil
}

// UnmarshalJSON implements json.Unmarshaler. null leaves d untouched.
func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return fmt.Errorf("model: date must be a string: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
