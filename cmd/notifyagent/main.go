// Command notifyagent polls the platform's notification feed and either
// accepts every friend request or answers invite requests with an
// invite to the requested instance.
//
// Usage:
//
//	notifyagent <api_key> <username> <password> <mode>
//
// mode is "accept" or "invite". Passing "-" as api_key or password reads
// the value from the system keyring. Populate the keyring with
//
//	notifyagent store <username> <apikey|password>
//
// which reads the secret from the first line of stdin.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/nhle/notification-agent/internal/credential"
	"github.com/nhle/notification-agent/internal/logger"
	"github.com/nhle/notification-agent/internal/model"
	"github.com/nhle/notification-agent/internal/source/vrchat"
	"github.com/nhle/notification-agent/internal/sync"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args, os.Stdin, os.Stdout, model.DefaultConfigPath(), credential.Keyring{}))
}

func usage(w io.Writer, args []string) {
	prog := "notifyagent"
	if len(args) > 0 {
		prog = args[0]
	}
	fmt.Fprintf(w, "Usage %s <api_key> <username> <password> <mode>\n", prog)
	fmt.Fprintf(w, "      %s store <username> <apikey|password>\n", prog)
}

// storeSecret reads one line from stdin and saves it under the keyring
// entry for args[2] and kind args[3].
func storeSecret(args []string, stdin io.Reader, stdout io.Writer, secrets credential.Store) int {
	key, err := credential.KeyFor(args[2], args[3])
	if err != nil {
		fmt.Fprintln(stdout, err)
		return 1
	}

	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		fmt.Fprintf(stdout, "reading secret: %v\n", err)
		return 1
	}
	secret := strings.TrimRight(line, "\r\n")
	if secret == "" {
		fmt.Fprintln(stdout, "reading secret: empty input")
		return 1
	}

	if err := secrets.Set(key, secret); err != nil {
		fmt.Fprintf(stdout, "storing secret: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "stored %s in keyring\n", key)
	return 0
}

// run wires the agent together and blocks until ctx is cancelled. Bad
// arguments print a message and return 0; startup failures return 1.
func run(
	ctx context.Context,
	args []string,
	stdin io.Reader,
	stdout io.Writer,
	configPath string,
	secrets credential.Store,
) int {
	if len(args) == 4 && args[1] == "store" {
		return storeSecret(args, stdin, stdout, secrets)
	}
	if len(args) != 5 {
		usage(stdout, args)
		return 0
	}
	apiKey, username, password := args[1], args[2], args[3]

	mode, err := sync.ParseMode(args[4])
	if err != nil {
		fmt.Fprintln(stdout, err)
		return 0
	}

	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(stdout, "loading config: %v\n", err)
		return 1
	}
	rev, err := model.ParseWireRevision(cfg.API.WireRevision)
	if err != nil {
		fmt.Fprintf(stdout, "loading config: %v\n", err)
		return 1
	}

	apiKey, err = credential.Resolve(apiKey, credential.APIKeyKey(username), secrets.Get)
	if err != nil {
		fmt.Fprintf(stdout, "resolving api key: %v\n", err)
		return 1
	}
	password, err = credential.Resolve(password, credential.PasswordKey(username), secrets.Get)
	if err != nil {
		fmt.Fprintf(stdout, "resolving password: %v\n", err)
		return 1
	}

	log := logger.New(stdout, cfg.Log.Level, cfg.Log.Format)

	client, err := vrchat.NewClient(vrchat.ClientConfig{
		BaseURL: cfg.API.BaseURL,
		Credentials: vrchat.Credentials{
			APIKey:   apiKey,
			Username: username,
			Password: password,
		},
		Timeout:   cfg.RequestTimeout(),
		UserAgent: cfg.API.UserAgent,
	})
	if err != nil {
		log.Error("creating api client", "error", err)
		return 1
	}

	api := vrchat.NewAPI(client, rev)
	log.Info("starting agent",
		"base_url", cfg.API.BaseURL,
		"wire_revision", string(api.Revision()),
		"mode", mode.String(),
	)

	poller := sync.New(api, mode, cfg.PollInterval(), log)
	_ = poller.Run(ctx)
	return 0
}
