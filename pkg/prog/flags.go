package prog

import (
	"flag"
	"time"

	"src.codepad.dev/pkg/config"
	"src.codepad.dev/pkg/logutil"
)

// FlagSet wraps a [flag.FlagSet] to provide methods to register flags shared
// by multiple subprograms on demand.
type FlagSet struct {
	*flag.FlagSet
	json   *bool
	config *ConfigFlags
}

// JSON returns a pointer to the value of the -json flag, registering it if
// needed.
func (fs *FlagSet) JSON() *bool {
	if fs.json == nil {
		var json bool
		fs.BoolVar(&json, "json", false,
			"Show the output of -buildinfo, -version or a script in JSON")
		fs.json = &json
	}
	return fs.json
}

// Config returns the flags affecting configuration, registering them if
// needed.
func (fs *FlagSet) Config() *ConfigFlags {
	if fs.config == nil {
		c := &ConfigFlags{fs: fs.FlagSet}
		fs.StringVar(&c.path, "config", "",
			"Path to the configuration file (default $XDG_CONFIG_HOME/codepad/config.yaml)")
		fs.StringVar(&c.lang, "lang", "",
			"Language of the code (javascript, typescript, python, java)")
		fs.DurationVar(&c.timeout, "timeout", 0,
			"Interrupt runs after this long; 0 means no limit")
		fs.config = c
	}
	return fs.config
}

// ConfigFlags keeps the flags that override the configuration.
type ConfigFlags struct {
	fs      *flag.FlagSet
	path    string
	lang    string
	timeout time.Duration
}

// IsSet reports whether a flag was given on the command line.
func (c *ConfigFlags) IsSet(name string) bool {
	set := false
	c.fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

// Overrides returns the configuration overrides from the flags that were
// given on the command line.
func (c *ConfigFlags) Overrides() config.Overrides {
	var o config.Overrides
	c.fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "config":
			o.Path = &c.path
		case "lang":
			o.Language = &c.lang
		case "timeout":
			o.RunTimeout = &c.timeout
		}
	})
	return o
}

// Load loads the configuration with o, which is usually obtained from
// Overrides and modified by the subprogram. The logging configuration is
// applied unless overridden by -log or -log-level.
func (c *ConfigFlags) Load(o config.Overrides) (*config.Config, error) {
	cfg, err := config.Load(o)
	if err != nil {
		return nil, err
	}
	if !c.IsSet("log") && cfg.Log.File != "" {
		if err := logutil.SetOutputFile(cfg.Log.File); err != nil {
			return nil, err
		}
	}
	if !c.IsSet("log-level") {
		if err := logutil.SetLevel(cfg.Log.Level); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
