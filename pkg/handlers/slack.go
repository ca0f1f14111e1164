/*
Copyright 2025 The KGCL Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package handlers ships one concrete hook.Handler demonstrating the
// handler contract end to end: a notify-on-trigger effect that posts
// to Slack when a hook's condition fires.
package handlers

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"

	"github.com/kgcl-io/kgcl-core/pkg/hook"
)

// SlackNotifier posts a message to a fixed channel whenever the hook it
// is attached to fires. It never blocks the hook's own timeout budget
// beyond the context it is given by hook.Executor.
type SlackNotifier struct {
	client  *slack.Client
	channel string
}

// NewSlackNotifier constructs a notifier posting to channel using a
// bot token.
func NewSlackNotifier(token, channel string) *SlackNotifier {
	return &SlackNotifier{client: slack.New(token), channel: channel}
}

// NewSlackNotifierWithClient constructs a notifier over an
// already-configured *slack.Client, so tests can point it at a fake
// API server via slack.OptionAPIURL.
func NewSlackNotifierWithClient(client *slack.Client, channel string) *SlackNotifier {
	return &SlackNotifier{client: client, channel: channel}
}

// Handler returns the hook.Handler this notifier exposes for
// registration.
func (s *SlackNotifier) Handler() hook.Handler {
	return func(ctx context.Context, hctx hook.Context) (map[string]any, error) {
		text := fmt.Sprintf("hook %q fired (actor=%s, triggered=%v)", hctx.HookName, hctx.Actor, hctx.Condition.Triggered)
		channelID, timestamp, err := s.client.PostMessageContext(
			ctx,
			s.channel,
			slack.MsgOptionText(text, false),
		)
		if err != nil {
			return nil, fmt.Errorf("handlers: slack notify for hook %q: %w", hctx.HookName, err)
		}
		return map[string]any{"channel": channelID, "timestamp": timestamp}, nil
	}
}
