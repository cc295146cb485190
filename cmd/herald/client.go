package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/dreamware/herald/internal/cluster"
)

const defaultServer = "http://localhost:8080"

func newNotifyCmd() *cobra.Command {
	var server string
	cmd := &cobra.Command{
		Use:   "notify <group>",
		Short: "Signal a group, or every group with \"all\"",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := cluster.BaseURL(server) + "/notify/" + url.PathEscape(args[0])
			var resp map[string]any
			if err := cluster.PostJSON(cmd.Context(), target, nil, &resp); err != nil {
				return errors.Wrapf(err, "notify %s", args[0])
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(resp)
		},
	}
	cmd.Flags().StringVar(&server, "server", defaultServer, "herald server URL")
	return cmd
}

type watchOptions struct {
	server  string
	group   string
	user    string
	timeout time.Duration
	once    bool
}

func (o watchOptions) url() string {
	q := url.Values{}
	path := "/subscribe/status"
	if o.user != "" {
		path = "/subscribe/user"
		q.Set("user_id", o.user)
	} else {
		q.Set("group", o.group)
	}
	if o.timeout > 0 {
		q.Set("timeout", o.timeout.String())
	}
	return cluster.BaseURL(o.server) + path + "?" + q.Encode()
}

func newWatchCmd() *cobra.Command {
	var opts watchOptions
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Long-poll a group or a user's groups and print each change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (opts.group == "") == (opts.user == "") {
				return errors.New("exactly one of --group or --user is required")
			}
			return watch(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.server, "server", defaultServer, "herald server URL")
	cmd.Flags().StringVar(&opts.group, "group", "", "group to watch")
	cmd.Flags().StringVar(&opts.user, "user", "", "user whose groups to watch")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "per-poll timeout requested from the server (default: server setting)")
	cmd.Flags().BoolVar(&opts.once, "once", false, "exit after the first change")
	return cmd
}

// watch polls until the context ends. Transport errors and 5xx answers
// are retried with exponential backoff; other 4xx answers end the watch.
func watch(cmd *cobra.Command, opts watchOptions) error {
	ctx := cmd.Context()
	target := opts.url()

	wait := opts.timeout
	if wait <= 0 {
		wait = 5 * time.Minute
	}
	client := &http.Client{Timeout: wait + 10*time.Second}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(b, ctx)

	enc := json.NewEncoder(cmd.OutOrStdout())
	for ctx.Err() == nil {
		var body map[string]any
		var code int
		poll := func() error {
			body = nil
			var err error
			code, err = cluster.GetJSONWith(ctx, client, target, &body)
			var statusErr *cluster.StatusError
			if errors.As(err, &statusErr) && statusErr.Code < 500 {
				return backoff.Permanent(err)
			}
			return err
		}
		retry := func(err error, next time.Duration) {
			fmt.Fprintf(cmd.ErrOrStderr(), "poll failed: %v (retrying in %s)\n", err, next.Round(time.Millisecond))
		}

		if err := backoff.RetryNotify(poll, policy, retry); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if code != http.StatusOK {
			continue
		}
		if err := enc.Encode(body); err != nil {
			return err
		}
		if opts.once {
			return nil
		}
	}
	return nil
}
