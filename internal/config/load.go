package config

import (
	"flag"
	"io"
	"os"
)

// Flags are the command line options that control loading itself.
type Flags struct {
	ConfigFile  string
	EnvFile     string
	PrintSchema bool
}

func newFlagSet(cfg *Config, flags *Flags, output io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("ema-playground", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&flags.ConfigFile, "config", DefaultConfigFile, "YAML configuration file")
	fs.StringVar(&flags.EnvFile, "env-file", DefaultEnvFile, "dotenv file loaded into the environment")
	fs.BoolVar(&flags.PrintSchema, "print-config-schema", false, "print the JSON schema of the configuration file and exit")
	cfg.RegisterFlags(fs)
	return fs
}

// Load builds the configuration from defaults, the config file, the env file,
// the environment and args. The arguments are parsed twice, first to find the
// files and then on top of everything else so flags win.
func Load(args []string, lookup func(string) (string, bool), output io.Writer) (Config, Flags, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	var flags Flags
	scratch := Default()
	fs := newFlagSet(&scratch, &flags, output)
	if err := fs.Parse(args); err != nil {
		return Config{}, flags, err
	}
	configFileSet := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			configFileSet = true
		}
	})

	cfg := Default()
	if flags.PrintSchema {
		return cfg, flags, nil
	}

	if err := LoadEnvFiles(flags.EnvFile); err != nil {
		return Config{}, flags, err
	}
	if err := cfg.LoadFile(flags.ConfigFile, configFileSet); err != nil {
		return Config{}, flags, err
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return Config{}, flags, err
	}

	if err := newFlagSet(&cfg, &flags, output).Parse(args); err != nil {
		return Config{}, flags, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, flags, err
	}
	return cfg, flags, nil
}
