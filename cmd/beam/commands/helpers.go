package commands

import (
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/SpatiumPortae/beam/cmd/beam/config"
	"github.com/SpatiumPortae/beam/internal/logger"
	"github.com/SpatiumPortae/beam/internal/portal"
	"github.com/SpatiumPortae/beam/internal/semver"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	relayFlagDesc = `Address of relay server. Accepted formats:
  - 127.0.0.1:8080
  - [::1]:8080
  - somedomain.com
	`
	tuiStyleFlagDesc  = "Style of the tui (rich|raw)"
	relayOnlyFlagDesc = "Relay all data through the relay server instead of a direct connection"
)

var validate = validator.New()
var ErrInvalidAddress = errors.New("invalid address provided")

// validateAddress validates a hostname or IP, optionally with a port.
func validateAddress(addr string) error {

	// IPv4 and IPv6 address validation.
	err := validate.Var(addr, "ip")
	if err == nil {
		return nil
	}

	// IPv4 or IPv6 or domain or localhost.
	err = validate.Var(addr, "hostname")
	if err == nil {
		return nil
	}

	// IPv4 or domain or localhost and a port. Or just a shortand port (:1234).
	err = validate.Var(addr, "hostname_port")
	if err == nil {
		return nil
	}

	// The hostname_port validator does not accept IPv6 host + port combinations.
	_, port, hostPortErr := net.SplitHostPort(addr)
	if hostPortErr != nil {
		return ErrInvalidAddress
	}
	if p, err := strconv.Atoi(port); err != nil || p < 0 || p > 65535 {
		return ErrInvalidAddress
	}
	return nil
}

// bindFlags binds the named flags of cmd to the provided viper keys.
func bindFlags(cmd *cobra.Command, keys map[string]string) error {
	for flag, key := range keys {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("binding %s flag: %w", flag, err)
		}
	}
	return nil
}

// setupLoggingFromViper returns a logger writing to `.beam-[cmd].log` when verbose
// logging is enabled, and a no-op logger otherwise.
func setupLoggingFromViper(cmd string) (*zap.Logger, error) {
	if !viper.GetBool("verbose") {
		return zap.NewNop(), nil
	}
	l, err := logger.NewFile(fmt.Sprintf(".beam-%s.log", cmd))
	if err != nil {
		return nil, fmt.Errorf("could not log to the provided file: %w", err)
	}
	return l.With(zap.String("command", cmd)), nil
}

// loadConfig reads and validates the configuration held by viper.
func loadConfig() (config.Config, error) {
	cfg := config.FromViper()
	if err := validateAddress(cfg.Relay); err != nil {
		return cfg, fmt.Errorf("%w: (%s) is not a valid relay address", err, cfg.Relay)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// portalConfig maps the command line configuration onto the transfer configuration.
func portalConfig(cfg config.Config) portal.Config {
	return portal.Config{
		RendezvousAddr: cfg.Relay,
		ICEServers:     cfg.ICEServers,
		ChunkSize:      cfg.ChunkSize,
		RelayOnly:      cfg.RelayOnly,
		ChannelTimeout: cfg.ChannelTimeout,
	}
}

// frontend runs a transfer command with the loaded configuration.
type frontend func(cfg config.Config, logger *zap.Logger) error

// runStyled loads configuration and logging for the named command and runs the
// frontend matching the configured tui style.
func runStyled(name string, rich, raw frontend) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := setupLoggingFromViper(name)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	run := rich
	if cfg.TuiStyle == config.StyleRaw {
		run = raw
	}
	if err := run(cfg, logger); err != nil {
		return fmt.Errorf("%s (%s tui): %w", name, cfg.TuiStyle, err)
	}
	return nil
}

// clientVersion parses the version the binary was built with. Development
// builds carry no version and skip version checks.
func clientVersion(version string) (semver.Version, bool) {
	ver, err := semver.Parse(version)
	return ver, err == nil
}
