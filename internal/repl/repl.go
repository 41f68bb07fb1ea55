// Package repl is the interactive browse loop of the CLI.
package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/starford/foodly/internal/browser"
	"github.com/starford/foodly/internal/events"
)

const help = `commands:
  list                 show the current collection
  search <query>       search by title (no query clears)
  filter <slug>...     filter by tags (no slug clears)
  open <id>            show one recipe
  bookmark <id>        toggle a bookmark
  bookmarks            list your bookmarks
  tags                 list tags
  login <user> <pass>  log in
  logout               log out
  register <user> <pass>
  whoami               show the logged-in user
  help                 this text
  quit                 leave
`

// lockedWriter serialises writes from the loop and the event printer.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// Options configures Run.
type Options struct {
	// TokenPath, when set, is watched for logins and logouts made by
	// another process.
	TokenPath string
}

// Run reads commands from in until EOF, quit, or ctx is cancelled.
func Run(ctx context.Context, b *browser.Browser, in io.Reader, out io.Writer, opts Options) error {
	w := &lockedWriter{w: out}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	if opts.TokenPath != "" {
		g.Go(func() error { return b.Watch(gctx, opts.TokenPath) })
	}

	sub := b.Events().Subscribe()
	g.Go(func() error {
		defer b.Events().Unsubscribe(sub)
		for {
			select {
			case <-gctx.Done():
				return nil
			case ev, ok := <-sub:
				if !ok {
					return nil
				}
				if ev.Type == events.SessionChanged {
					state := "logged out"
					if b.Session().IsLoggedIn {
						state = "logged in"
					}
					fmt.Fprintf(w, "* session: %s\n", state)
				}
			}
		}
	})

	g.Go(func() error {
		defer cancel()
		return loop(gctx, b, in, w)
	})

	return g.Wait()
}

func loop(ctx context.Context, b *browser.Browser, in io.Reader, w io.Writer) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
		close(lines)
	}()

	fmt.Fprint(w, "> ")
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return <-scanErr
			}
			quit, err := Exec(ctx, b, w, line)
			if err != nil {
				fmt.Fprintf(w, "error: %v\n", err)
			}
			if quit {
				return nil
			}
			fmt.Fprint(w, "> ")
		}
	}
}

// Exec runs one command line. It reports whether the loop should end.
func Exec(ctx context.Context, b *browser.Browser, w io.Writer, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "quit", "exit":
		return true, nil

	case "help":
		_, err := io.WriteString(w, help)
		return false, err

	case "list":
		if err := b.Refresh(ctx); err != nil {
			return false, err
		}
		return false, RenderList(w, b.View().Recipes)

	case "search":
		if err := b.Search(ctx, strings.Join(args, " ")); err != nil {
			return false, err
		}
		return false, RenderList(w, b.View().Recipes)

	case "filter":
		if err := b.FilterBySlugs(ctx, args); err != nil {
			return false, err
		}
		return false, RenderList(w, b.View().Recipes)

	case "open":
		id, err := oneID(args)
		if err != nil {
			return false, err
		}
		r, err := b.Open(ctx, id)
		if err != nil {
			return false, err
		}
		return false, RenderRecipe(w, r)

	case "bookmark":
		id, err := oneID(args)
		if err != nil {
			return false, err
		}
		v, err := b.ToggleBookmark(ctx, id)
		if err != nil {
			return false, err
		}
		if v {
			fmt.Fprintf(w, "recipe %d bookmarked\n", id)
		} else {
			fmt.Fprintf(w, "recipe %d no longer bookmarked\n", id)
		}
		return false, nil

	case "bookmarks":
		page, err := b.Bookmarks(ctx, 1, 0)
		if err != nil {
			return false, err
		}
		return false, RenderList(w, page.Records)

	case "tags":
		tags, err := b.Tags(ctx)
		if err != nil {
			return false, err
		}
		return false, RenderTags(w, tags)

	case "login":
		if len(args) != 2 {
			return false, errors.New("usage: login <user> <pass>")
		}
		if err := b.Login(ctx, args[0], args[1]); err != nil {
			return false, err
		}
		fmt.Fprintf(w, "logged in as %s\n", args[0])
		return false, nil

	case "logout":
		b.Logout(ctx)
		fmt.Fprintln(w, "logged out")
		return false, nil

	case "register":
		if len(args) != 2 {
			return false, errors.New("usage: register <user> <pass>")
		}
		u, err := b.Register(ctx, args[0], args[1])
		if err != nil {
			return false, err
		}
		fmt.Fprintf(w, "registered %s (id %d), log in to continue\n", u.Username, u.ID)
		return false, nil

	case "whoami":
		p, err := b.Whoami(ctx)
		if err != nil {
			return false, err
		}
		fmt.Fprintln(w, p.Username)
		return false, nil
	}

	return false, fmt.Errorf("unknown command %q, try help", cmd)
}

func oneID(args []string) (int, error) {
	if len(args) != 1 {
		return 0, errors.New("expected one recipe id")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid recipe id %q", args[0])
	}
	return id, nil
}
