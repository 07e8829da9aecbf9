// Command pivot serves and renders the endpoints of a pivot configuration.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/bjaus/pivot/config"
	"github.com/bjaus/pivot/render"
	"github.com/bjaus/pivot/server"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

type globals struct {
	configPath string
	logLevel   string
	logFormat  string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:          "pivot",
		Short:        "Reshape tabular records and render them in many formats",
		SilenceUsage: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "pivot.yaml", "Configuration file")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&g.logFormat, "log-format", "text", "Log format: text, json")

	root.AddCommand(newServeCmd(g), newRenderCmd(g), newFormatsCmd(), newEndpointsCmd(g))
	return root
}

func (g *globals) logger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(g.logLevel)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", g.logLevel)
	}
	opts := &slog.HandlerOptions{Level: level}
	switch g.logFormat {
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q (must be text or json)", g.logFormat)
	}
}

func newServeCmd(g *globals) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve every configured endpoint over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, err := g.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			cfg, err := config.Load(g.configPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s := server.New(cfg, server.WithLogger(log))
			if err := s.ListenAndServe(ctx, addr); err != nil {
				log.Error("serve", "error", err)
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "Listen address")
	return cmd
}

type renderFlags struct {
	endpoint   string
	format     string
	output     string
	orient     string
	dateFormat string
	group      string
	reshape    string
	width      int
	height     int
}

func (f renderFlags) query() url.Values {
	q := url.Values{}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set("orient", f.orient)
	set("date_format", f.dateFormat)
	set("group", f.group)
	set("reshape", f.reshape)
	if f.width > 0 {
		q.Set("width", fmt.Sprint(f.width))
	}
	if f.height > 0 {
		q.Set("height", fmt.Sprint(f.height))
	}
	return q
}

func newRenderCmd(g *globals) *cobra.Command {
	var f renderFlags
	cmd := &cobra.Command{
		Use:   "render [endpoint]",
		Short: "Render one endpoint to stdout or a file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				f.endpoint = args[0]
			}
			if f.endpoint == "" {
				return fmt.Errorf("an endpoint is required")
			}
			if f.format == "" && f.output != "" {
				if i := strings.LastIndexByte(f.output, '.'); i >= 0 {
					f.format = f.output[i+1:]
				}
			}
			if f.format == "" {
				f.format = string(render.Table)
			}

			log, err := g.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			cfg, err := config.Load(g.configPath)
			if err != nil {
				return err
			}
			return renderTo(cmd.Context(), server.New(cfg, server.WithLogger(log)), cmd.OutOrStdout(), f)
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.endpoint, "endpoint", "e", "", "Endpoint name")
	fl.StringVarP(&f.format, "format", "f", "", "Output format (default: from --output, else table)")
	fl.StringVarP(&f.output, "output", "o", "", "Output file path (default: stdout)")
	fl.StringVar(&f.orient, "orient", "", "JSON orient")
	fl.StringVar(&f.dateFormat, "date-format", "", "JSON date format: iso, epoch")
	fl.StringVar(&f.group, "group", "", "Boxplot grouping")
	fl.StringVar(&f.reshape, "reshape", "", "Reshape kind offered by the endpoint")
	fl.IntVar(&f.width, "width", 0, "Chart width in pixels")
	fl.IntVar(&f.height, "height", 0, "Chart height in pixels")
	return cmd
}

func renderTo(ctx context.Context, s *server.Server, stdout io.Writer, f renderFlags) (err error) {
	if f.output == "" {
		_, err = s.Render(ctx, stdout, f.endpoint, f.format, f.query())
		return err
	}
	file, err := os.Create(f.output)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(f.output)
		}
	}()
	_, err = s.Render(ctx, file, f.endpoint, f.format, f.query())
	return err
}

func newFormatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List the supported output formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg := render.DefaultRegistry()
			for _, f := range reg.Formats() {
				r, _ := reg.Lookup(f)
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%-8s %s\n", f, r.MediaType()); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newEndpointsCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "endpoints",
		Short: "List the configured endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(g.configPath)
			if err != nil {
				return err
			}
			for _, e := range cfg.Endpoints {
				kinds := make([]string, 0, len(e.Kinds()))
				for _, k := range e.Kinds() {
					kinds = append(kinds, k.String())
				}
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", e.Name, strings.Join(kinds, ","), e.Description); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
