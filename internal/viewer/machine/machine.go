package machine

import (
	"github.com/smallbiznis/storefront/internal/config"
	"github.com/smallbiznis/storefront/internal/viewer/domain"
)

type Settings struct {
	// Site filters the viewer's purchases to this storefront.
	Site   string
	Routes config.Routes
}

// Machine tracks whether the browser session is logged in. Transition is
// pure; identity lookups, storage and navigation are returned as effects.
type Machine struct {
	settings Settings
}

func New(settings Settings) *Machine {
	return &Machine{settings: settings}
}

// Start enters checkingIfLoggedIn and requests the identity check.
func (m *Machine) Start(page domain.PageLocation) (domain.Snapshot, []domain.Effect) {
	s := domain.Snapshot{
		State: domain.StateCheckingIfLoggedIn,
		Page:  page,
		Epoch: 1,
	}
	return s, []domain.Effect{domain.CheckIdentity{Epoch: s.Epoch, Page: page}}
}

// Transition applies one event. handled is false when the current state does
// not accept it or when a completion event belongs to an earlier invocation.
func (m *Machine) Transition(s domain.Snapshot, ev domain.Event) (domain.Snapshot, []domain.Effect, bool) {
	switch s.State {
	case domain.StateCheckingIfLoggedIn:
		return m.onCheckingIfLoggedIn(s, ev)
	case domain.StateLoggedInStable, domain.StateLoggedInRefreshing:
		return m.onLoggedIn(s, ev)
	case domain.StateLoggedOut:
		return m.onLoggedOut(s, ev)
	}
	return s, nil, false
}

func (m *Machine) onCheckingIfLoggedIn(s domain.Snapshot, ev domain.Event) (domain.Snapshot, []domain.Effect, bool) {
	switch e := ev.(type) {
	case domain.ReportIsLoggedIn:
		if e.Epoch != s.Epoch || e.Viewer.IsEmpty() {
			return s, nil, false
		}
		s.Context.Viewer = e.Viewer
		s.Context.ViewAsUser = e.ViewAsUser
		s, effects := m.enterLoggedIn(s, e)
		return s, effects, true
	case domain.ReportIsLoggedOut:
		if e.Epoch != s.Epoch {
			return s, nil, false
		}
		s, effects := m.enterLoggedOut(s, e)
		return s, effects, true
	}
	return s, nil, false
}

func (m *Machine) onLoggedIn(s domain.Snapshot, ev domain.Event) (domain.Snapshot, []domain.Effect, bool) {
	switch e := ev.(type) {
	case domain.LogOut:
		s, effects := m.enterLoggedOut(s, e)
		return s, effects, true
	case domain.RefreshViewer:
		if s.State != domain.StateLoggedInStable {
			return s, nil, false
		}
		s.State = domain.StateLoggedInRefreshing
		s.Epoch++
		return s, []domain.Effect{domain.RefreshIdentity{Epoch: s.Epoch}}, true
	case domain.ReportRefreshedViewer:
		if s.State != domain.StateLoggedInRefreshing || e.Epoch != s.Epoch || e.Viewer.IsEmpty() {
			return s, nil, false
		}
		s.Context.Viewer = e.Viewer
		s.State = domain.StateLoggedInStable
		return s, nil, true
	case domain.RefreshFailed:
		if s.State != domain.StateLoggedInRefreshing || e.Epoch != s.Epoch {
			return s, nil, false
		}
		s, effects := m.enterLoggedOut(s, e)
		return s, effects, true
	}
	return s, nil, false
}

func (m *Machine) onLoggedOut(s domain.Snapshot, ev domain.Event) (domain.Snapshot, []domain.Effect, bool) {
	e, ok := ev.(domain.LogIn)
	if !ok || e.Viewer.IsEmpty() {
		return s, nil, false
	}
	s.Context.Viewer = e.Viewer
	s, effects := m.enterLoggedIn(s, e)
	return s, append([]domain.Effect{domain.StopMonitor{}}, effects...), true
}

// enterLoggedIn always identifies the viewer. Only a fresh login reported on
// the OAuth landing route redirects.
func (m *Machine) enterLoggedIn(s domain.Snapshot, trigger domain.Event) (domain.Snapshot, []domain.Effect) {
	s.State = domain.StateLoggedInStable
	s.Context.Error = ""
	s.Epoch++

	effects := []domain.Effect{domain.Identify{Viewer: s.Context.Viewer}}
	if _, ok := trigger.(domain.ReportIsLoggedIn); ok && s.Page.Path == m.settings.Routes.OAuthRedirect {
		if target := m.landingRoute(s.Context.Viewer); target != "" {
			effects = append(effects, domain.Navigate{Location: domain.Location{URL: target}})
		}
	}
	return s, effects
}

// enterLoggedOut forgets the viewer, wipes the session and watches it for an
// out-of-band login.
func (m *Machine) enterLoggedOut(s domain.Snapshot, trigger domain.Event) (domain.Snapshot, []domain.Effect) {
	s.State = domain.StateLoggedOut
	s.Context = domain.Context{}
	s.Epoch++

	effects := []domain.Effect{domain.ClearSession{}}
	if navigatesToLogin(trigger) && m.settings.Routes.Login != "" {
		effects = append(effects, domain.Navigate{Location: domain.Location{URL: m.settings.Routes.Login}})
	}
	effects = append(effects, domain.StartMonitor{Known: nil})
	return s, effects
}

// navigatesToLogin is true for an explicit logout and for a failed refresh;
// the initial logged out report stays on the page.
func navigatesToLogin(trigger domain.Event) bool {
	switch trigger.(type) {
	case domain.LogOut, domain.RefreshFailed:
		return true
	}
	return false
}

func (m *Machine) landingRoute(v *domain.Viewer) string {
	switch {
	case IsUnclaimedBulkPurchaser(v, m.settings.Site):
		return m.settings.Routes.Invoice
	case CanViewContent(SitePurchases(v, m.settings.Site)):
		return m.settings.Routes.Learn
	}
	return ""
}
