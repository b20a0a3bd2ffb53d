package domain

type EffectKind string

const (
	EffectCheckIdentity   EffectKind = "checkIdentity"
	EffectRefreshIdentity EffectKind = "refreshIdentity"
	EffectIdentify        EffectKind = "identify"
	EffectNavigate        EffectKind = "navigate"
	EffectClearSession    EffectKind = "clearSession"
	EffectStartMonitor    EffectKind = "startMonitor"
	EffectStopMonitor     EffectKind = "stopMonitor"
)

type Effect interface {
	Kind() EffectKind
}

type CheckIdentity struct {
	Epoch uint64
	Page  PageLocation
}

type RefreshIdentity struct {
	Epoch uint64
}

type Identify struct {
	Viewer *Viewer
}

type Navigate struct {
	Location Location
}

type ClearSession struct{}

// StartMonitor polls the session store for an identity that differs from
// Known and reports it as LOG_IN.
type StartMonitor struct {
	Known *Viewer
}

type StopMonitor struct{}

func (CheckIdentity) Kind() EffectKind   { return EffectCheckIdentity }
func (RefreshIdentity) Kind() EffectKind { return EffectRefreshIdentity }
func (Identify) Kind() EffectKind        { return EffectIdentify }
func (Navigate) Kind() EffectKind        { return EffectNavigate }
func (ClearSession) Kind() EffectKind    { return EffectClearSession }
func (StartMonitor) Kind() EffectKind    { return EffectStartMonitor }
func (StopMonitor) Kind() EffectKind     { return EffectStopMonitor }
