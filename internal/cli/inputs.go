package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/sdejongh/vrtnorris/pkg/config"
	"github.com/sdejongh/vrtnorris/pkg/models"
)

// envPrefix prefixes the environment variables read by every command
const envPrefix = "VRT"

// envInput maps one setting onto its environment variables. Each setting
// can come from VRT_<NAME> or from the GitHub Actions input variable
// INPUT_<NAME>, in that order.
type envInput struct {
	name  string
	apply func(cfg *config.Config, value string) error
}

var envInputs = []envInput{
	{"path", func(c *config.Config, v string) error { c.Compare.Path = v; return nil }},
	{"threshold", func(c *config.Config, v string) error {
		return parseRange(v, "threshold", 0, 100, &c.Compare.Threshold)
	}},
	{"pixel-threshold", func(c *config.Config, v string) error {
		return parseRange(v, "pixel-threshold", 0, 1, &c.Compare.PixelThreshold)
	}},
	{"include-anti-aliasing", func(c *config.Config, v string) error {
		return parseBool(v, "include-anti-aliasing", &c.Compare.IncludeAntiAliasing)
	}},
	{"output-dir", func(c *config.Config, v string) error { c.Compare.DiffDir = v; return nil }},
	{"api-url", func(c *config.Config, v string) error { c.Remote.APIURL = v; return nil }},
	{"api-key", func(c *config.Config, v string) error { c.Remote.APIKey = v; return nil }},
	{"repository", func(c *config.Config, v string) error { c.Remote.Repository = v; return nil }},
	{"baseline-alias", func(c *config.Config, v string) error { c.Remote.BaselineAlias = v; return nil }},
	{"screenshots-alias", func(c *config.Config, v string) error { c.Remote.ScreenshotsAlias = v; return nil }},
	{"diffs-alias", func(c *config.Config, v string) error { c.Remote.DiffsAlias = v; return nil }},
	{"upload-results", func(c *config.Config, v string) error {
		return parseBool(v, "upload-results", &c.Remote.UploadResults)
	}},
	{"fail-on-difference", func(c *config.Config, v string) error {
		return parseBool(v, "fail-on-difference", &c.Output.FailOnDifference)
	}},
	{"summary", func(c *config.Config, v string) error {
		return parseBool(v, "summary", &c.Output.Summary)
	}},
	{"summary-images", func(c *config.Config, v string) error {
		c.Output.SummaryImages = strings.ToLower(v)
		return nil
	}},
	{"concurrency", func(c *config.Config, v string) error {
		return parseInt(v, "concurrency", &c.Transfer.Concurrency)
	}},
	{"max-retries", func(c *config.Config, v string) error {
		return parseInt(v, "max-retries", &c.Transfer.MaxRetries)
	}},
	{"bandwidth-limit", func(c *config.Config, v string) error { c.Transfer.BandwidthLimit = v; return nil }},
	{"temp-dir", func(c *config.Config, v string) error { c.Transfer.TempDir = v; return nil }},
	{"log-level", func(c *config.Config, v string) error { c.Logging.Level = strings.ToLower(v); return nil }},
	{"log-format", func(c *config.Config, v string) error { c.Logging.Format = strings.ToLower(v); return nil }},
}

// newEnvReader returns a viper instance bound to every input variable
func newEnvReader() *viper.Viper {
	v := viper.New()
	for _, in := range envInputs {
		v.BindEnv(in.name, envName(in.name), inputName(in.name))
	}
	return v
}

// envName returns the VRT_ variable for an input, e.g. VRT_API_KEY
func envName(name string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

// inputName returns the Actions runner variable for an input. The runner
// keeps hyphens, e.g. INPUT_API-KEY.
func inputName(name string) string {
	return "INPUT_" + strings.ToUpper(strings.ReplaceAll(name, " ", "_"))
}

// applyEnvironment overlays environment variables on cfg. Empty variables
// are ignored, which is how the runner passes inputs left unset.
func applyEnvironment(cfg *config.Config) error {
	v := newEnvReader()
	for _, in := range envInputs {
		if !v.IsSet(in.name) {
			continue
		}
		value := strings.TrimSpace(v.GetString(in.name))
		if value == "" {
			continue
		}
		if err := in.apply(cfg, value); err != nil {
			return err
		}
	}
	return nil
}

func parseRange(value, field string, lo, hi float64, dst *float64) error {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return &models.ValidationError{Field: field, Message: fmt.Sprintf("must be a number, got %q", value)}
	}
	if !(f >= lo && f <= hi) {
		return &models.ValidationError{Field: field, Message: fmt.Sprintf("must be between %g and %g", lo, hi)}
	}
	*dst = f
	return nil
}

func parseBool(value, field string, dst *bool) error {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return &models.ValidationError{Field: field, Message: fmt.Sprintf("must be true or false, got %q", value)}
	}
	*dst = b
	return nil
}

func parseInt(value, field string, dst *int) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return &models.ValidationError{Field: field, Message: fmt.Sprintf("must be an integer, got %q", value)}
	}
	*dst = n
	return nil
}
