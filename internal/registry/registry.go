package registry

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Instrument is the static per-deployment configuration for one tradable
// contract. Quantities are contract counts.
type Instrument struct {
	Symbol  string
	Aliases []string
	OpenQty int64
	AddQty  int64
	MaxQty  int64

	// Per-instrument cooldown overrides keyed by cooldown group
	// (e.g. "rsi_oversold_weak"). Values fall back to the top-level table.
	Cooldowns map[string]time.Duration
}

// Registry resolves alert tickers to instruments and holds cooldown windows.
type Registry struct {
	instruments map[string]Instrument // by trade symbol
	aliases     map[string]string     // alert ticker -> trade symbol
	windows     map[string]time.Duration
}

// duration lets cooldown windows be written as "45m" in YAML.
type duration time.Duration

func (d *duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = duration(parsed)
	return nil
}

type instrumentSchema struct {
	Symbol    string              `yaml:"symbol"`
	Aliases   []string            `yaml:"aliases"`
	OpenQty   int64               `yaml:"open_qty"`
	AddQty    int64               `yaml:"add_qty"`
	MaxQty    int64               `yaml:"max_qty"`
	Cooldowns map[string]duration `yaml:"cooldowns"`
}

type fileSchema struct {
	Cooldowns   map[string]duration `yaml:"cooldowns"`
	Instruments []instrumentSchema  `yaml:"instruments"`
}

// Default cooldown windows used when the config file leaves a group unset.
var defaultWindows = map[string]time.Duration{
	"directional": time.Hour,
	"take_profit": 30 * time.Minute,
	"rsi":         45 * time.Minute,
}

// Load reads the instrument configuration from a YAML file.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read instruments config: %w", err)
	}
	return Parse(data)
}

// Parse builds a Registry from raw YAML and validates every instrument.
func Parse(data []byte) (*Registry, error) {
	var file fileSchema
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse instruments config: %w", err)
	}
	if len(file.Instruments) == 0 {
		return nil, fmt.Errorf("instruments config: no instruments defined")
	}

	r := &Registry{
		instruments: make(map[string]Instrument, len(file.Instruments)),
		aliases:     make(map[string]string),
		windows:     make(map[string]time.Duration, len(defaultWindows)),
	}
	for k, v := range defaultWindows {
		r.windows[k] = v
	}
	for k, v := range file.Cooldowns {
		if v <= 0 {
			return nil, fmt.Errorf("instruments config: cooldown %q must be positive", k)
		}
		r.windows[k] = time.Duration(v)
	}

	for _, raw := range file.Instruments {
		inst := Instrument{
			Symbol:  raw.Symbol,
			Aliases: raw.Aliases,
			OpenQty: raw.OpenQty,
			AddQty:  raw.AddQty,
			MaxQty:  raw.MaxQty,
		}
		if len(raw.Cooldowns) > 0 {
			inst.Cooldowns = make(map[string]time.Duration, len(raw.Cooldowns))
			for k, v := range raw.Cooldowns {
				inst.Cooldowns[k] = time.Duration(v)
			}
		}
		if err := validate(inst); err != nil {
			return nil, err
		}
		if _, dup := r.instruments[inst.Symbol]; dup {
			return nil, fmt.Errorf("instruments config: duplicate symbol %s", inst.Symbol)
		}
		r.instruments[inst.Symbol] = inst
		r.aliases[inst.Symbol] = inst.Symbol
		for _, a := range inst.Aliases {
			if prev, dup := r.aliases[a]; dup && prev != inst.Symbol {
				return nil, fmt.Errorf("instruments config: alias %s bound to both %s and %s", a, prev, inst.Symbol)
			}
			r.aliases[a] = inst.Symbol
		}
	}
	return r, nil
}

func validate(inst Instrument) error {
	if inst.Symbol == "" {
		return fmt.Errorf("instruments config: instrument with empty symbol")
	}
	if inst.OpenQty <= 0 || inst.AddQty <= 0 || inst.MaxQty <= 0 {
		return fmt.Errorf("instrument %s: open_qty, add_qty and max_qty must be positive", inst.Symbol)
	}
	if inst.OpenQty > inst.MaxQty || inst.AddQty > inst.MaxQty {
		return fmt.Errorf("instrument %s: open_qty and add_qty must not exceed max_qty", inst.Symbol)
	}
	return nil
}

// Resolve maps an alert ticker (or a trade symbol itself) to its instrument.
func (r *Registry) Resolve(token string) (Instrument, bool) {
	sym, ok := r.aliases[strings.TrimSpace(token)]
	if !ok {
		return Instrument{}, false
	}
	return r.instruments[sym], true
}

// Get returns the instrument for a trade symbol.
func (r *Registry) Get(symbol string) (Instrument, bool) {
	inst, ok := r.instruments[symbol]
	return inst, ok
}

// Symbols lists all configured trade symbols.
func (r *Registry) Symbols() []string {
	out := make([]string, 0, len(r.instruments))
	for sym := range r.instruments {
		out = append(out, sym)
	}
	return out
}

// Window returns the cooldown window for an instrument and cooldown group.
// Precedence: per-instrument override, configured group, the shared "rsi"
// default for RSI groups, then one hour.
func (r *Registry) Window(symbol, group string) time.Duration {
	if inst, ok := r.instruments[symbol]; ok {
		if w, ok := inst.Cooldowns[group]; ok && w > 0 {
			return w
		}
	}
	if w, ok := r.windows[group]; ok {
		return w
	}
	if strings.HasPrefix(group, "rsi_") {
		if w, ok := r.windows["rsi"]; ok {
			return w
		}
	}
	return time.Hour
}
