package cli

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/ctl"
	"github.com/effective-security/x/print"
	"github.com/effective-security/xjose/coder"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/xjose", "cli")

// Cli provides CLI context to run commands
type Cli struct {
	Version ctl.VersionFlag `name:"version" help:"Print version information and quit" hidden:""`
	Debug   bool            `short:"D" help:"Enable debug mode"`

	// Stdin is the source to read from, typically set to os.Stdin
	stdin io.Reader
	// Output is the destination for all output from the command, typically set to os.Stdout
	output io.Writer
	// ErrOutput is the destinaton for errors.
	// If not set, errors will be written to os.StdError
	errOutput io.Writer
}

// Reader is the source to read from, typically set to os.Stdin
func (c *Cli) Reader() io.Reader {
	if c.stdin != nil {
		return c.stdin
	}
	return os.Stdin
}

// WithReader allows to specify a custom reader
func (c *Cli) WithReader(reader io.Reader) *Cli {
	c.stdin = reader
	return c
}

// Writer returns a writer for control output
func (c *Cli) Writer() io.Writer {
	if c.output != nil {
		return c.output
	}
	return os.Stdout
}

// WithWriter allows to specify a custom writer
func (c *Cli) WithWriter(out io.Writer) *Cli {
	c.output = out
	return c
}

// ErrWriter returns a writer for control output
func (c *Cli) ErrWriter() io.Writer {
	if c.errOutput != nil {
		return c.errOutput
	}
	return os.Stderr
}

// WithErrWriter allows to specify a custom error writer
func (c *Cli) WithErrWriter(out io.Writer) *Cli {
	c.errOutput = out
	return c
}

// AfterApply hook sets the log level
func (c *Cli) AfterApply(_ *kong.Kong, _ kong.Vars) error {
	if c.Debug {
		xlog.SetGlobalLogLevel(xlog.DEBUG)
	} else {
		xlog.SetGlobalLogLevel(xlog.ERROR)
	}
	return nil
}

// WriteJSON prints response to out
func (c *Cli) WriteJSON(value any) {
	print.JSON(c.Writer(), value)
}

// ReadFile reads from stdin if the file is "-"
func (c *Cli) ReadFile(filename string) ([]byte, error) {
	if filename == "" {
		return nil, errors.New("empty file name")
	}
	if filename == "-" {
		return io.ReadAll(c.Reader())
	}
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return b, nil
}

// CoderFlags specifies the coder configuration,
// either by config file or by keys and algorithms
type CoderFlags struct {
	Config string   `help:"coder configuration file, YAML or JSON"`
	Keys   string   `help:"JWK or JWKS file, or env:// reference"`
	Alg    []string `help:"allowed algorithms in the order of priority"`
}

// config returns the coder configuration
func (f *CoderFlags) config() (*coder.Config, error) {
	if f.Config != "" {
		cfg, err := coder.LoadConfig(f.Config)
		if err != nil {
			return nil, errors.WithMessage(err, "unable to load config")
		}
		cfg.Algorithms = append(cfg.Algorithms, f.Alg...)
		return cfg, nil
	}
	if f.Keys == "" {
		return nil, errors.New("either --config or --keys must be provided")
	}

	keys := f.Keys
	if !strings.Contains(keys, "://") {
		keys = "file://" + keys
	}
	return &coder.Config{
		Algorithms: f.Alg,
		Keys:       keys,
	}, nil
}

// parseHeader returns the header from JSON string
func parseHeader(js string) (coder.Header, error) {
	if js == "" {
		return nil, nil
	}
	var h coder.Header
	if err := json.Unmarshal([]byte(js), &h); err != nil {
		return nil, errors.WithMessage(err, "unable to parse header")
	}
	return h, nil
}

// encodeOptions returns the options for Encode call
func encodeOptions(serialization string) ([]coder.EncodeOption, error) {
	if serialization == "" {
		return nil, nil
	}
	s, err := coder.ParseSerialization(serialization)
	if err != nil {
		return nil, err
	}
	return []coder.EncodeOption{coder.WithSerialization(s)}, nil
}

// enableAll enables all serializations for decoding
func enableAll(s interface {
	EnableSerializations(list ...coder.Serialization) error
}) error {
	return s.EnableSerializations(coder.Compact, coder.JSONFlattened, coder.JSONGeneral)
}

func (c *Cli) writeToken(token string) error {
	_, err := io.WriteString(c.Writer(), token+"\n")
	return errors.WithStack(err)
}

func (c *Cli) writePayload(payload []byte, header coder.Header, printHeader bool) error {
	if printHeader {
		c.WriteJSON(map[string]any{
			"header":  header,
			"payload": string(payload),
		})
		return nil
	}
	_, err := c.Writer().Write(payload)
	return errors.WithStack(err)
}
