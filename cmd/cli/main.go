// Command sf is a CLI client for the scoutfund service.
package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/status"

	pb "github.com/and161185/scoutfund/api/fundraiser/v1"
	"github.com/and161185/scoutfund/internal/auth"
	"github.com/and161185/scoutfund/internal/model"
)

// ---- config/token store ----

type tokenFile struct {
	AccessToken string    `json:"access_token"`
	AccountID   string    `json:"account_id,omitempty"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "scoutfund")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "scoutfund")
}

func tokenPath() string { return filepath.Join(cfgDir(), "token.json") }

func saveToken(tf tokenFile) error {
	if err := os.MkdirAll(cfgDir(), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(tokenPath(), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(tf)
}

func loadToken() (string, error) {
	b, err := os.ReadFile(tokenPath())
	if err != nil {
		return "", err
	}
	var tf tokenFile
	if err := json.Unmarshal(b, &tf); err != nil {
		return "", err
	}
	if tf.AccessToken == "" || time.Now().After(tf.ExpiresAt) {
		return "", errors.New("no valid token (run `sf token` or set SF_TOKEN)")
	}
	return tf.AccessToken, nil
}

// resolveToken picks the bearer token: flag, then SF_TOKEN, then the token file.
func resolveToken(flagTok string) (string, error) {
	if flagTok != "" {
		return flagTok, nil
	}
	if v := strings.TrimSpace(os.Getenv("SF_TOKEN")); v != "" {
		return v, nil
	}
	return loadToken()
}

// mintToken issues a development token signed with the server's shared key.
func mintToken(key, sub, email string, admin bool, ttl time.Duration, now time.Time) (tokenFile, error) {
	if key == "" {
		return tokenFile{}, errors.New("signing key required (-jwt-key or SF_JWT_KEY)")
	}
	id := model.Identity{Email: email, Admin: admin}
	if sub == "" {
		id.AccountID = uuid.Must(uuid.NewV4())
	} else {
		parsed, err := uuid.FromString(sub)
		if err != nil {
			return tokenFile{}, fmt.Errorf("sub: %w", err)
		}
		id.AccountID = parsed
	}
	tok, exp, err := auth.Issue([]byte(key), id, ttl, now)
	if err != nil {
		return tokenFile{}, err
	}
	return tokenFile{AccessToken: tok, AccountID: id.AccountID.String(), ExpiresAt: exp}, nil
}

// ---- grpc dial ----

type bearerCreds struct{ token string }

func (b bearerCreds) GetRequestMetadata(context.Context, ...string) (map[string]string, error) {
	return map[string]string{"authorization": "Bearer " + b.token}, nil
}
func (b bearerCreds) RequireTransportSecurity() bool { return true }

func loadTLS(caPath string, insecure bool) (credentials.TransportCredentials, error) {
	if insecure {
		return credentials.NewTLS(&tls.Config{InsecureSkipVerify: true}), nil
	}
	if caPath == "" {
		return credentials.NewClientTLSFromCert(nil, ""), nil
	}
	pem, err := os.ReadFile(caPath)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, errors.New("bad CA cert")
	}
	return credentials.NewTLS(&tls.Config{RootCAs: pool}), nil
}

func dial(addr, caPath string, insecure bool, bearer string) (*grpc.ClientConn, *pb.FundraiserClient, error) {
	creds, err := loadTLS(caPath, insecure)
	if err != nil {
		return nil, nil, err
	}
	opts := []grpc.DialOption{grpc.WithTransportCredentials(creds)}
	if bearer != "" {
		opts = append(opts, grpc.WithPerRPCCredentials(bearerCreds{token: bearer}))
	}
	cc, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, nil, err
	}
	return cc, pb.NewFundraiserClient(cc), nil
}

// ---- utils ----

func readAll(p string) ([]byte, error) {
	if p == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(p)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func usage() {
	fmt.Fprintf(os.Stderr, `sf CLI
Usage:
  sf -addr HOST:PORT [-cacert file | -insecure] [-token T] <cmd> [args]

Local:
  version
  token   [-jwt-key K] [-sub uuid] -email <addr> [-admin] [-ttl 12h] [-save]

Commands:
`)
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %-16s %s\n", name, commands[name].usage)
	}
	os.Exit(2)
}

// describeError renders a status error with its reason and field violations.
func describeError(err error) string {
	s, ok := status.FromError(err)
	if !ok {
		return err.Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "rpc error: code=%s msg=%s", s.Code(), s.Message())
	for _, d := range s.Details() {
		switch det := d.(type) {
		case *errdetails.ErrorInfo:
			fmt.Fprintf(&b, " reason=%s", det.GetReason())
			keys := make([]string, 0, len(det.GetMetadata()))
			for k := range det.GetMetadata() {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(&b, " %s=%s", k, det.GetMetadata()[k])
			}
		case *errdetails.BadRequest:
			for _, v := range det.GetFieldViolations() {
				fmt.Fprintf(&b, "\n  %s: %s", v.GetField(), v.GetDescription())
			}
		case *errdetails.RetryInfo:
			fmt.Fprintf(&b, " retry_in=%s", det.GetRetryDelay().AsDuration())
		}
	}
	return b.String()
}

// ---- main ----

var (
	version   = "dev"
	buildDate = "unknown"
)

// main dispatches subcommands and configures TLS/auth for RPC calls.
func main() {
	// global flags
	addr := flag.String("addr", envOr("SF_ADDR", "localhost:8443"), "server addr")
	caPath := flag.String("cacert", "", "CA cert (PEM)")
	insecure := flag.Bool("insecure", false, "skip cert verify (dev)")
	token := flag.String("token", "", "bearer token (default: SF_TOKEN or saved token)")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	name, args := flag.Arg(0), flag.Args()[1:]

	switch name {
	case "version":
		fmt.Printf("sf %s (%s)\n", version, buildDate)
		return

	case "token":
		fs := flag.NewFlagSet("token", flag.ExitOnError)
		key := fs.String("jwt-key", os.Getenv("SF_JWT_KEY"), "HS256 signing key")
		sub := fs.String("sub", "", "account id (random when empty)")
		email := fs.String("email", "", "email claim")
		admin := fs.Bool("admin", false, "admin claim")
		ttl := fs.Duration("ttl", 12*time.Hour, "token lifetime")
		save := fs.Bool("save", true, "store in the token file")
		_ = fs.Parse(args)
		tf, err := mintToken(*key, *sub, *email, *admin, *ttl, time.Now())
		if err != nil {
			fail(err)
		}
		if *save {
			if err := saveToken(tf); err != nil {
				fail(err)
			}
		}
		printJSON(tf)
		return
	}

	cmd, ok := commands[name]
	if !ok {
		usage()
	}

	bearer, err := resolveToken(*token)
	if err != nil {
		fail(err)
	}
	cc, cl, err := dial(*addr, *caPath, *insecure, bearer)
	if err != nil {
		fail(err)
	}
	defer cc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	out, err := cmd.run(ctx, cl, args)
	if err != nil {
		cc.Close()
		fail(err)
	}
	printJSON(out)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, describeError(err))
	os.Exit(1)
}
