package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-auth-exchange/engine"
	"github.com/jrsteele09/go-auth-exchange/internal/config"
	apperrors "github.com/jrsteele09/go-auth-exchange/internal/errors"
	"github.com/jrsteele09/go-auth-exchange/internal/logging"
	"github.com/jrsteele09/go-auth-exchange/token"
	"github.com/rs/zerolog/log"
)

const usage = `usage: tokenctl <command> [flags]

commands:
  check     validate configuration and list the enabled exchanges
  keygen    generate signing key material
  exchange  run one exchange against a seeded account directory
  purge     remove expired tokens from the configured storage
`

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "tokenctl: %s\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	if len(args) == 0 {
		return errors.New(usage)
	}
	config.LoadDotEnv(".env", ".env.local")

	switch args[0] {
	case "check":
		return check(args[1:], out)
	case "keygen":
		return keygen(args[1:], out)
	case "exchange":
		return runExchange(args[1:], out)
	case "purge":
		return purge(args[1:], out)
	}
	return fmt.Errorf("unknown command %q\n%s", args[0], usage)
}

type engineFlags struct {
	configPath   string
	accountsPath string
}

func (f *engineFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.configPath, "config", config.GetEnv("AUTHX_CONFIG", ""), "path to the YAML configuration")
	fs.StringVar(&f.accountsPath, "accounts", config.GetEnv("AUTHX_ACCOUNTS", ""), "path to a YAML account directory seed")
}

// open loads the configuration and builds the engine around the seeded
// account directory.
func (f *engineFlags) open(ctx context.Context) (config.Config, *engine.Engine, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger := logging.Setup(cfg.Logging)

	directory, err := loadDirectory(f.accountsPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	e, err := engine.New(ctx, cfg, directory, engine.WithLogger(logger))
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, e, nil
}

func check(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	var ef engineFlags
	ef.register(fs)
	quiet := fs.Bool("quiet", false, "skip the banner")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, e, err := ef.open(context.Background())
	if err != nil {
		return err
	}
	defer e.Close()

	if !*quiet {
		displayAppname(out, cfg.AppName)
	}
	fmt.Fprintln(out, cfg)
	for _, pair := range e.Registry.Pairs() {
		fmt.Fprintf(out, "  %s\n", pair)
	}
	return nil
}

func purge(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("purge", flag.ContinueOnError)
	var ef engineFlags
	ef.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	_, e, err := ef.open(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	removed, err := e.Purge(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "removed %d expired tokens\n", removed)
	return nil
}

// exchangeOutput is the printable form of a token.AuthResponse
type exchangeOutput struct {
	EntityType   token.EntityType  `json:"entityType"`
	EntityID     string            `json:"entityId"`
	Type         token.Kind        `json:"type"`
	Token        string            `json:"token,omitempty"`
	Bundle       *token.OIDCBundle `json:"bundle,omitempty"`
	RefreshToken *string           `json:"refreshToken,omitempty"`
	ValidFor     string            `json:"validFor,omitempty"`
}

func runExchange(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("exchange", flag.ContinueOnError)
	var ef engineFlags
	ef.register(fs)
	from := fs.String("from", string(token.Basic), "kind presented")
	to := fs.String("to", string(token.AccessToken), "kind requested")
	var req token.AuthRequest
	fs.StringVar(&req.Identifier, "identifier", "", "identifier for basic exchanges")
	fs.StringVar(&req.Password, "password", "", "password for basic exchanges")
	fs.StringVar(&req.Token, "token", "", "token presented")
	fs.StringVar(&req.Domain, "domain", "", "account domain")
	fs.StringVar(&req.ClientID, "client", "", "client id")
	verifier := fs.String("code-verifier", "", "PKCE code verifier")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *verifier != "" {
		req.Extra = map[string]string{token.ExtraCodeVerifier: *verifier}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, e, err := ef.open(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	resp, err := e.Service.Exchange(ctx, req, token.Kind(*from), token.Kind(*to))
	if err != nil {
		log.Debug().Err(err).Msg("exchange failed")
		return errors.New(apperrors.Public(err))
	}
	return printResponse(out, resp)
}

func printResponse(out io.Writer, resp *token.AuthResponse) error {
	o := exchangeOutput{
		EntityType:   resp.EntityType,
		EntityID:     resp.EntityID,
		Type:         resp.Type,
		Token:        resp.TokenString(),
		Bundle:       resp.Bundle(),
		RefreshToken: resp.RefreshToken,
	}
	if resp.ValidFor > 0 {
		o.ValidFor = resp.ValidFor.String()
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(o)
}

func displayAppname(out io.Writer, appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	fmt.Fprintln(out, myFigure.String())
}
