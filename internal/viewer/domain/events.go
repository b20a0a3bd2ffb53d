package domain

import "strings"

type EventType string

const (
	EventReportIsLoggedIn      EventType = "REPORT_IS_LOGGED_IN"
	EventReportIsLoggedOut     EventType = "REPORT_IS_LOGGED_OUT"
	EventLogIn                 EventType = "LOG_IN"
	EventLogOut                EventType = "LOG_OUT"
	EventRefreshViewer         EventType = "REFRESH_VIEWER"
	EventReportRefreshedViewer EventType = "REPORT_REFRESHED_VIEWER"
	EventRefreshFailed         EventType = "REFRESH_FAILED"
)

type Event interface {
	Type() EventType
}

// ReportIsLoggedIn and ReportIsLoggedOut complete the identity check started
// on entry to checkingIfLoggedIn.
type ReportIsLoggedIn struct {
	Epoch      uint64
	Viewer     *Viewer
	ViewAsUser string
}

type ReportIsLoggedOut struct {
	Epoch uint64
}

// LogIn is raised by the session monitor when the stored identity changes
// while logged out.
type LogIn struct {
	Viewer *Viewer
}

type LogOut struct{}

type RefreshViewer struct{}

type ReportRefreshedViewer struct {
	Epoch  uint64
	Viewer *Viewer
}

// RefreshFailed completes a refresh that could not re-resolve the viewer. It
// is internal; clients log out with LogOut.
type RefreshFailed struct {
	Epoch uint64
}

func (ReportIsLoggedIn) Type() EventType      { return EventReportIsLoggedIn }
func (ReportIsLoggedOut) Type() EventType     { return EventReportIsLoggedOut }
func (LogIn) Type() EventType                 { return EventLogIn }
func (LogOut) Type() EventType                { return EventLogOut }
func (RefreshViewer) Type() EventType         { return EventRefreshViewer }
func (ReportRefreshedViewer) Type() EventType { return EventReportRefreshedViewer }
func (RefreshFailed) Type() EventType         { return EventRefreshFailed }

// EventInput is the wire form of the events a client may dispatch.
type EventInput struct {
	Type string `json:"type"`
}

func (in EventInput) ToEvent() (Event, error) {
	switch EventType(strings.ToUpper(strings.TrimSpace(in.Type))) {
	case EventRefreshViewer:
		return RefreshViewer{}, nil
	case EventLogOut:
		return LogOut{}, nil
	default:
		return nil, ErrInvalidEvent
	}
}
