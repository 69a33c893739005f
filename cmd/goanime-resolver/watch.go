package main

import (
	"context"
	"fmt"
	"io"

	"github.com/ktr0731/go-fuzzyfinder"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/alvarorichard/goanime-resolver/internal/models"
	"github.com/alvarorichard/goanime-resolver/internal/playback"
	"github.com/alvarorichard/goanime-resolver/internal/player"
	"github.com/alvarorichard/goanime-resolver/internal/util"
	"github.com/alvarorichard/goanime-resolver/pkg/resolver"
)

// session is a running player
type session interface {
	Wait(ctx context.Context) error
	Close() error
}

type launchFunc func(ctx context.Context, res models.Result, link, title string) (session, error)

// watcher plays an episode and walks the provider list on playback failure
type watcher struct {
	machine   *playback.Machine
	launch    launchFunc
	confirm   func(title string) (bool, error)
	spin      func(title string, action func())
	out       io.Writer
	proxyBase string
	title     string
	start     int
	// noPlay prints the playback URL instead of launching the player
	noPlay bool
}

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var flags queryFlags
	var noPlay, pick bool

	cmd := &cobra.Command{
		Use:   "watch [anime-slug] [episode]",
		Short: "Play an episode, falling back to the next provider when playback fails",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			tty := interactive()

			slug, episode, err := watchArgs(args, tty)
			if err != nil {
				return err
			}

			fetcher, release, err := ctx.newFetcher(flags.endpoint)
			if err != nil {
				return err
			}
			defer func() { _ = release() }()

			q := flags.query(slug, episode)
			if pick {
				if !tty {
					return errors.New("--pick needs a terminal")
				}
				if q.Start, err = pickProvider(cmd.Context(), fetcher); err != nil {
					return err
				}
			}
			w := &watcher{
				machine:   playback.NewMachine(fetcher, q),
				launch:    mpvLauncher(player.Options{Binary: cfg.Client.Player}),
				confirm:   confirm,
				spin:      func(title string, action func()) { spin(tty, title, action) },
				out:       cmd.OutOrStdout(),
				proxyBase: cfg.Client.ProxyBase,
				title:     fmt.Sprintf("%s - Episode %s", q.Title(), episode),
				noPlay:    noPlay,
				start:     q.Start,
			}
			if !tty {
				w.confirm = func(string) (bool, error) { return true, nil }
			}
			return w.run(cmd.Context())
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&pick, "pick", false, "Choose the first provider to try")
	cmd.Flags().BoolVar(&noPlay, "no-play", false, "Print the playback URL instead of launching the player")
	return cmd
}

// watchArgs fills missing arguments from prompts on a terminal
func watchArgs(args []string, tty bool) (string, string, error) {
	slug, episode := "", ""
	if len(args) > 0 {
		slug = args[0]
	}
	if len(args) > 1 {
		episode = args[1]
	}
	if (slug == "" || episode == "") && !tty {
		return "", "", errors.New("anime slug and episode are required")
	}

	var err error
	if slug == "" {
		if slug, err = prompt("Anime slug"); err != nil {
			return "", "", err
		}
	}
	if episode == "" {
		if episode, err = prompt("Episode"); err != nil {
			return "", "", err
		}
	}
	return slug, episode, nil
}

// listProviders asks the fetcher's backend for its provider order
func listProviders(ctx context.Context, fetcher playback.Fetcher) ([]models.ProviderDescriptor, error) {
	switch f := fetcher.(type) {
	case *playback.HTTPFetcher:
		return f.Providers(ctx)
	case *resolver.Client:
		return f.Providers(), nil
	default:
		return nil, errors.Errorf("cannot list providers of %T", fetcher)
	}
}

func pickProvider(ctx context.Context, fetcher playback.Fetcher) (int, error) {
	descriptors, err := listProviders(ctx, fetcher)
	if err != nil {
		return 0, err
	}
	idx, err := fuzzyfinder.Find(
		descriptors,
		func(i int) string {
			return descriptors[i].Name
		},
		fuzzyfinder.WithPromptString("Start from provider: "),
		fuzzyfinder.WithPreviewWindow(func(i, w, h int) string {
			if i < 0 || i >= len(descriptors) {
				return ""
			}
			d := descriptors[i]
			return fmt.Sprintf("%s\n%s\n\n%s", d.Slug, d.BaseURL, d.Docs)
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("provider selection cancelled: %w", err)
	}
	return idx, nil
}

func mpvLauncher(opts player.Options) launchFunc {
	return func(ctx context.Context, res models.Result, link, title string) (session, error) {
		return player.Launch(ctx, opts, res, link, title)
	}
}

func (w *watcher) run(ctx context.Context) error {
	defer func() { _ = w.machine.Close() }()

	var err error
	w.spin("Resolving episode...", func() { err = w.machine.StartFrom(ctx, w.start) })

	for {
		if err != nil {
			return w.giveUp(err)
		}

		cur, _ := w.machine.Current()
		link := w.machine.PlaybackURL(w.proxyBase)
		printf(w.out, "%s %s %s\n",
			providerStyle.Render(cur.Provider),
			faintStyle.Render(fmt.Sprintf("(%d/%d)", cur.Index+1, cur.Total)),
			link)
		if w.noPlay {
			return nil
		}

		playErr := w.play(ctx, cur.Result, link)
		if playErr == nil {
			return nil
		}
		if !errors.Is(playErr, player.ErrPlaybackFailed) {
			return playErr
		}
		printf(w.out, "%s %v\n", failStyle.Render("playback failed:"), playErr)

		if !w.machine.CanRetry() {
			return w.giveUp(playback.ErrAllProvidersFailed)
		}
		next, cerr := w.confirm("Try the next provider?")
		if cerr != nil {
			return cerr
		}
		if !next {
			return nil
		}
		w.spin("Trying next provider...", func() { err = w.machine.PlaybackFailed(ctx) })
	}
}

func (w *watcher) play(ctx context.Context, res models.Result, link string) error {
	// The relay carries the header overrides when the link is proxied.
	if link != res.EpisodeURL() {
		res.Headers = nil
	}
	s, err := w.launch(ctx, res, link, w.title)
	if err != nil {
		return err
	}
	w.machine.Attach(s)
	return s.Wait(ctx)
}

func (w *watcher) giveUp(err error) error {
	total := 0
	if cur, ok := w.machine.Current(); ok {
		total = cur.Total
	}
	util.Debug("watch stopped", "error", err, "tried", w.machine.Tried())
	printf(w.out, "%s %s\n", faintStyle.Render("tried providers:"), formatTried(w.machine.Tried(), total))
	return err
}
