package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/foodly/internal"
	"github.com/starford/foodly/internal/mcpserver"
	"github.com/starford/foodly/internal/repl"
	pkgconfig "github.com/starford/foodly/pkg/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// withApp opens the client for the duration of fn.
func withApp(fn func(ctx context.Context, cmd *cli.Command, app *internal.App) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		app, err := internal.Open(ctx, internal.WithConfig(cfg))
		if err != nil {
			return fmt.Errorf("app open error: %w", err)
		}
		defer app.Close()
		return fn(ctx, cmd, app)
	}
}

func idArg(cmd *cli.Command) (int, error) {
	if cmd.Args().Len() != 1 {
		return 0, fmt.Errorf("expected exactly one recipe id")
	}
	id, err := strconv.Atoi(cmd.Args().First())
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid recipe id %q", cmd.Args().First())
	}
	return id, nil
}

// credentials reads username and password from the arguments, prompting on
// stdin for a missing password.
func credentials(cmd *cli.Command, in io.Reader, out io.Writer) (string, string, error) {
	args := cmd.Args()
	switch args.Len() {
	case 2:
		return args.Get(0), args.Get(1), nil
	case 1:
		fmt.Fprint(out, "password: ")
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", "", fmt.Errorf("read password: %w", err)
		}
		return args.Get(0), strings.TrimRight(line, "\r\n"), nil
	}
	return "", "", fmt.Errorf("usage: %s <username> [password]", cmd.Name)
}

func commands() []*cli.Command {
	return []*cli.Command{
		{
			Name:      "login",
			Usage:     "Log in and persist the session token",
			ArgsUsage: "<username> [password]",
			Action: withApp(func(ctx context.Context, cmd *cli.Command, app *internal.App) error {
				user, pass, err := credentials(cmd, os.Stdin, os.Stderr)
				if err != nil {
					return err
				}
				if err := app.Browser.Login(ctx, user, pass); err != nil {
					return err
				}
				fmt.Printf("logged in as %s\n", user)
				return nil
			}),
		},
		{
			Name:  "logout",
			Usage: "Forget the persisted session token",
			Action: withApp(func(ctx context.Context, _ *cli.Command, app *internal.App) error {
				app.Browser.Logout(ctx)
				fmt.Println("logged out")
				return nil
			}),
		},
		{
			Name:      "register",
			Usage:     "Create an account (does not log in)",
			ArgsUsage: "<username> [password]",
			Action: withApp(func(ctx context.Context, cmd *cli.Command, app *internal.App) error {
				user, pass, err := credentials(cmd, os.Stdin, os.Stderr)
				if err != nil {
					return err
				}
				u, err := app.Browser.Register(ctx, user, pass)
				if err != nil {
					return err
				}
				fmt.Printf("registered %s (id %d)\n", u.Username, u.ID)
				return nil
			}),
		},
		{
			Name:  "whoami",
			Usage: "Show the logged-in user",
			Action: withApp(func(ctx context.Context, _ *cli.Command, app *internal.App) error {
				p, err := app.Browser.Whoami(ctx)
				if err != nil {
					return err
				}
				fmt.Println(p.Username)
				return nil
			}),
		},
		{
			Name:  "recipes",
			Usage: "List recipes, optionally searched and filtered",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Title search"},
				&cli.StringSliceFlag{Name: "tag", Aliases: []string{"t"}, Usage: "Tag slug filter (repeatable)"},
			},
			Action: withApp(func(ctx context.Context, cmd *cli.Command, app *internal.App) error {
				query, tags := cmd.String("query"), cmd.StringSlice("tag")
				if query != "" || len(tags) > 0 {
					if err := app.Browser.Find(ctx, query, tags); err != nil {
						return err
					}
				}
				return repl.RenderList(os.Stdout, app.Browser.View().Recipes)
			}),
		},
		{
			Name:      "recipe",
			Usage:     "Show one recipe",
			ArgsUsage: "<id>",
			Action: withApp(func(ctx context.Context, cmd *cli.Command, app *internal.App) error {
				id, err := idArg(cmd)
				if err != nil {
					return err
				}
				r, err := app.Browser.Open(ctx, id)
				if err != nil {
					return err
				}
				return repl.RenderRecipe(os.Stdout, r)
			}),
		},
		{
			Name:      "bookmark",
			Usage:     "Toggle the bookmark on a recipe",
			ArgsUsage: "<id>",
			Action: withApp(func(ctx context.Context, cmd *cli.Command, app *internal.App) error {
				id, err := idArg(cmd)
				if err != nil {
					return err
				}
				on, err := app.Browser.ToggleBookmark(ctx, id)
				if err != nil {
					return err
				}
				if on {
					fmt.Printf("recipe %d bookmarked\n", id)
				} else {
					fmt.Printf("recipe %d unbookmarked\n", id)
				}
				return nil
			}),
		},
		{
			Name:  "bookmarks",
			Usage: "List your bookmarked recipes",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "page", Value: "1", Usage: "Page number"},
			},
			Action: withApp(func(ctx context.Context, cmd *cli.Command, app *internal.App) error {
				page, err := strconv.Atoi(cmd.String("page"))
				if err != nil {
					return fmt.Errorf("invalid page %q", cmd.String("page"))
				}
				out, err := app.Browser.Bookmarks(ctx, page, 0)
				if err != nil {
					return err
				}
				return repl.RenderList(os.Stdout, out.Records)
			}),
		},
		{
			Name:  "tags",
			Usage: "List tags",
			Action: withApp(func(ctx context.Context, _ *cli.Command, app *internal.App) error {
				tags, err := app.Browser.Tags(ctx)
				if err != nil {
					return err
				}
				return repl.RenderTags(os.Stdout, tags)
			}),
		},
		{
			Name:  "browse",
			Usage: "Interactive browser; follows logins made by other processes",
			Action: withApp(func(ctx context.Context, _ *cli.Command, app *internal.App) error {
				var opts repl.Options
				if path, ok := app.TokenFile(); ok {
					opts.TokenPath = path
				}
				return repl.Run(ctx, app.Browser, os.Stdin, os.Stdout, opts)
			}),
		},
		{
			Name:  "mcp",
			Usage: "Serve the recipe tools over MCP on stdio",
			Action: withApp(func(ctx context.Context, _ *cli.Command, app *internal.App) error {
				ctx, cancel := context.WithCancel(ctx)
				defer cancel()

				srv := mcpserver.New(app.Browser, version)
				sub := app.Broker.Subscribe()
				go srv.Forward(ctx, sub)
				if path, ok := app.TokenFile(); ok {
					go func() {
						if err := app.Browser.Watch(ctx, path); err != nil {
							app.Logger.Warn("token watcher stopped", slog.String("error", err.Error()))
						}
					}()
				}
				return srv.ServeStdio()
			}),
		},
		{
			Name:  "mockapi",
			Usage: "Serve the in-memory recipes backend for local development",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				if err := internal.ServeMockAPI(ctx, internal.WithConfig(cfg)); err != nil {
					return fmt.Errorf("mockapi run error: %w", err)
				}
				return nil
			},
		},
	}
}

func main() {
	cmd := &cli.Command{
		Name:     "foodly",
		Usage:    "Browse, search and bookmark recipes from the terminal",
		Version:  version,
		Commands: commands(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
