package plot

// TriggerConfig configures scope-mode edge detection.
type TriggerConfig struct {
	Channel int // 1-based
	Level   float64
	Edge    Edge
}

// Trigger detects level crossings on one channel. After each trigger the
// detector is in cooldown until the signal goes back across the level, so a
// single crossing fires once.
type Trigger struct {
	cfg       TriggerConfig
	cooldown  bool
	triggered bool
}

// NewTrigger returns a detector in cooldown: the signal has to be seen on
// the far side of the level before the first trigger can fire.
func NewTrigger(cfg TriggerConfig) *Trigger {
	return &Trigger{cfg: cfg, cooldown: true}
}

// Observe feeds one sample and reports whether it is a trigger event.
func (t *Trigger) Observe(v float64) bool {
	below, above := v < t.cfg.Level, v > t.cfg.Level
	if t.cfg.Edge == EdgeFalling {
		below, above = above, below
	}

	fired := !t.cooldown && above
	if t.cooldown && below {
		t.cooldown = false
	}
	if fired {
		t.cooldown = true
		t.triggered = true
	}
	return fired
}

// Channel is the 1-based channel the detector watches.
func (t *Trigger) Channel() int { return t.cfg.Channel }

// Armed reports whether the next crossing will fire.
func (t *Trigger) Armed() bool { return !t.cooldown }

// Triggered reports whether any trigger has fired.
func (t *Trigger) Triggered() bool { return t.triggered }
