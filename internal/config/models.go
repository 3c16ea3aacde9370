package config

import (
	"time"

	"github.com/freshpots/freshpots/internal/discovery"
)

// CurrentVersion is the config file format version.
const CurrentVersion = 1

// Registry represents the entire user configuration file.
type Registry struct {
	Version     int             `yaml:"version"`
	Pots        map[string]*Pot `yaml:"pots,omitempty"` // Keyed by mDNS instance name
	Preferences *Preferences    `yaml:"preferences,omitempty"`
}

// Pot is what the client remembers about one pot.
type Pot struct {
	Nickname string    `yaml:"nickname,omitempty"`  // User-friendly name
	LastHost string    `yaml:"last_host,omitempty"` // Last resolved IP address
	LastPort int       `yaml:"last_port,omitempty"` // Last resolved TCP port
	LastSeen time.Time `yaml:"last_seen,omitempty"` // Last time the pot resolved
}

// Preferences are application-wide settings. Command-line flags override them.
type Preferences struct {
	ServiceType      string `yaml:"service_type"`      // mDNS service type to browse for
	ResponseDelayMS  int    `yaml:"response_delay_ms"` // Wait between request and reply read
	PollIntervalMS   int    `yaml:"poll_interval_ms"`  // Status query interval for watch/serve
	DiscoveryTimeout int    `yaml:"discovery_timeout"` // mDNS scan/resolve timeout in seconds
	DialTimeoutMS    int    `yaml:"dial_timeout_ms"`   // TCP connect timeout
	Listen           string `yaml:"listen,omitempty"`  // Default address for the serve command
}

// DefaultPreferences returns the built-in settings.
func DefaultPreferences() *Preferences {
	return &Preferences{
		ServiceType:      discovery.DefaultServiceType,
		ResponseDelayMS:  500,
		PollIntervalMS:   5000,
		DiscoveryTimeout: 5,
		DialTimeoutMS:    2000,
		Listen:           "127.0.0.1:8080",
	}
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:     CurrentVersion,
		Pots:        make(map[string]*Pot),
		Preferences: DefaultPreferences(),
	}
}

// ResponseDelay returns the configured reply wait.
func (p *Preferences) ResponseDelay() time.Duration {
	return time.Duration(p.ResponseDelayMS) * time.Millisecond
}

// PollInterval returns the configured status query interval.
func (p *Preferences) PollInterval() time.Duration {
	return time.Duration(p.PollIntervalMS) * time.Millisecond
}

// DialTimeout returns the configured connect timeout.
func (p *Preferences) DialTimeout() time.Duration {
	return time.Duration(p.DialTimeoutMS) * time.Millisecond
}

// DiscoveryWait returns the configured discovery timeout.
func (p *Preferences) DiscoveryWait() time.Duration {
	return time.Duration(p.DiscoveryTimeout) * time.Second
}

// fillDefaults replaces zero values left by older or hand-edited files.
func (p *Preferences) fillDefaults() {
	d := DefaultPreferences()
	if p.ServiceType == "" {
		p.ServiceType = d.ServiceType
	}
	if p.ResponseDelayMS <= 0 {
		p.ResponseDelayMS = d.ResponseDelayMS
	}
	if p.PollIntervalMS <= 0 {
		p.PollIntervalMS = d.PollIntervalMS
	}
	if p.DiscoveryTimeout <= 0 {
		p.DiscoveryTimeout = d.DiscoveryTimeout
	}
	if p.DialTimeoutMS <= 0 {
		p.DialTimeoutMS = d.DialTimeoutMS
	}
	if p.Listen == "" {
		p.Listen = d.Listen
	}
}

// GetPot retrieves pot metadata by instance name.
// Returns nil if the pot isn't in the registry.
func (r *Registry) GetPot(instance string) *Pot {
	return r.Pots[instance]
}

// EnsurePot returns the entry for instance, creating it if needed.
func (r *Registry) EnsurePot(instance string) *Pot {
	if r.Pots == nil {
		r.Pots = make(map[string]*Pot)
	}

	if pot, exists := r.Pots[instance]; exists {
		return pot
	}

	pot := &Pot{}
	r.Pots[instance] = pot
	return pot
}

// RecordEndpoint remembers where a pot last resolved.
func (r *Registry) RecordEndpoint(ep *discovery.Endpoint) {
	if ep == nil || ep.Instance == "" {
		return
	}
	pot := r.EnsurePot(ep.Instance)
	pot.LastHost = ep.IP
	pot.LastPort = ep.Port
	pot.LastSeen = ep.ResolvedAt
	if pot.LastSeen.IsZero() {
		pot.LastSeen = time.Now()
	}
}

// SetPotNickname sets a user-friendly nickname for a pot.
func (r *Registry) SetPotNickname(instance, nickname string) {
	r.EnsurePot(instance).Nickname = nickname
}

// DisplayName returns the nickname for instance, or instance itself.
func (r *Registry) DisplayName(instance string) string {
	if pot := r.GetPot(instance); pot != nil && pot.Nickname != "" {
		return pot.Nickname
	}
	return instance
}

// MostRecentPot returns the pot seen last, or "" and nil when none is known.
func (r *Registry) MostRecentPot() (string, *Pot) {
	var (
		name string
		best *Pot
	)
	for instance, pot := range r.Pots {
		if pot.LastHost == "" {
			continue
		}
		if best == nil || pot.LastSeen.After(best.LastSeen) {
			name, best = instance, pot
		}
	}
	return name, best
}
