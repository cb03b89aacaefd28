package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/sqlpulse/sqlpulse/internal/config"
	"github.com/sqlpulse/sqlpulse/internal/harness"
	"github.com/sqlpulse/sqlpulse/internal/styles"
)

var actionNames = []string{
	harness.ActionGetState,
	harness.ActionStartContinuousWrites,
	harness.ActionStopContinuousWrites,
	harness.ActionClearContinuousWrites,
	harness.ActionGetInsertedData,
}

var actionCmd = &cli.Command{
	Name:      "action",
	Usage:     "Invoke a harness action on a running instance",
	ArgsUsage: "<action-name>",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Usage:   "Control endpoint address (host:port)",
			Aliases: []string{"s"},
			Value:   config.DefaultListen,
		},
		&cli.IntFlag{
			Name:    "timeout",
			Usage:   "Timeout for the operation in seconds",
			Aliases: []string{"t"},
			Value:   90,
		},
	},
	Action: actionAction,
}

func actionAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() < 1 {
		return cli.Exit(fmt.Sprintf("action name required, one of: %s", strings.Join(actionNames, ", ")), 1)
	}
	name := cmd.Args().Get(0)

	if t := cmd.Int("timeout"); t > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(t)*time.Second)
		defer cancel()
	}

	url := fmt.Sprintf("http://%s/v1/actions/%s", cmd.String("server"), name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to reach control endpoint: %v", err), 1)
	}
	defer resp.Body.Close()

	result := map[string]any{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return cli.Exit(fmt.Sprintf("failed to decode response: %v", err), 1)
	}

	if resp.StatusCode != http.StatusOK {
		msg, _ := result["error"].(string)
		if msg == "" {
			msg = resp.Status
		}
		return cli.Exit(styles.Error.Render(msg), 1)
	}

	fmt.Print(styles.RenderResult(result))
	return nil
}
