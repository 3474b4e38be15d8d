package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
)

// ErrUsage is returned when the command line does not hold exactly one
// check-in date.
var ErrUsage = errors.New("incorrect usage: there must be exactly one command line argument")

// Usage is printed after a usage error.
const Usage = `Usage:
	filter [-input path|s3://bucket/key] [-output path|s3://bucket/key] [-config file] YYYY-MM-DD
where YYYY-MM-DD is a valid customer check-in date`

type Config struct {
	Checkin    string
	Input      string
	Output     string
	ConfigFile string
}

// ParseFlags parses the filter command line. Input and output fall back to
// FILTER_INPUT and FILTER_OUTPUT when not given; the config layer supplies
// their final defaults.
func ParseFlags(args []string, stderr io.Writer) (Config, error) {
	var cfg Config

	fs := flag.NewFlagSet("filter", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprintln(stderr, Usage) }

	fs.StringVar(&cfg.Input, "input", "", "Offers document to read")
	fs.StringVar(&cfg.Output, "output", "", "Location to write the selected offers")
	fs.StringVar(&cfg.ConfigFile, "config", "", "JSON or YAML config file")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if fs.NArg() != 1 {
		return Config{}, ErrUsage
	}
	cfg.Checkin = fs.Arg(0)

	if cfg.ConfigFile == "" {
		cfg.ConfigFile = os.Getenv("CONFIG_FILE")
	}
	if cfg.Input == "" {
		cfg.Input = os.Getenv("FILTER_INPUT")
	}
	if cfg.Output == "" {
		cfg.Output = os.Getenv("FILTER_OUTPUT")
	}

	return cfg, nil
}
