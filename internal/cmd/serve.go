package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/tileserver/internal/archive"
	"github.com/MeKo-Tech/tileserver/internal/errs"
	"github.com/MeKo-Tech/tileserver/internal/httpapi"
	"github.com/MeKo-Tech/tileserver/internal/overlay"
	"github.com/MeKo-Tech/tileserver/internal/renderer"
	"github.com/MeKo-Tech/tileserver/internal/resolver"
	"github.com/MeKo-Tech/tileserver/internal/style"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve tiles and static maps for a registered style",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "127.0.0.1:8080", "Listen address (host:port)")
	serveCmd.Flags().String("style-id", "default", "Style id to register and serve under")
	serveCmd.Flags().String("style-doc", "", "Path to a style document JSON file (empty registers a sourceless style)")
	serveCmd.Flags().String("mapnik-style", "", "Path to a Mapnik XML stylesheet (empty renders background only)")
	serveCmd.Flags().String("background-color", "", "Hex background color (e.g. #f8f4e8)")
	serveCmd.Flags().Int("max-scale-factor", 2, "Highest @Nx pixel ratio this style serves (1-9)")
	serveCmd.Flags().String("sprites-dir", "", "Directory sprite:// URLs resolve against")
	serveCmd.Flags().String("icons-dir", "", "Directory of available marker icon images (top-level files only)")
	serveCmd.Flags().Bool("allow-inline-marker-images", false, "Allow data: URI marker icons")
	serveCmd.Flags().Bool("allow-remote-marker-icons", false, "Allow http(s) marker icon URLs")
	serveCmd.Flags().String("watermark", "", "Watermark text drawn on every rendered image")
	serveCmd.Flags().String("static-attribution", "", "Attribution text drawn on static maps")

	mustBind := func(key, name string) {
		if err := viper.BindPFlag(key, serveCmd.Flags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind flag: %v", err))
		}
	}

	mustBind("serve.addr", "addr")
	mustBind("serve.style_id", "style-id")
	mustBind("serve.style_doc", "style-doc")
	mustBind("serve.mapnik_style", "mapnik-style")
	mustBind("serve.background_color", "background-color")
	mustBind("serve.max_scale_factor", "max-scale-factor")
	mustBind("serve.sprites_dir", "sprites-dir")
	mustBind("serve.icons_dir", "icons-dir")
	mustBind("serve.allow_inline_marker_images", "allow-inline-marker-images")
	mustBind("serve.allow_remote_marker_icons", "allow-remote-marker-icons")
	mustBind("serve.watermark", "watermark")
	mustBind("serve.static_attribution", "static-attribution")
}

func runServe(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	addr := viper.GetString("serve.addr")
	styleID := viper.GetString("serve.style_id")
	styleDocPath := viper.GetString("serve.style_doc")
	mapnikStyle := viper.GetString("serve.mapnik_style")
	backgroundColor := viper.GetString("serve.background_color")
	maxScaleFactor := viper.GetInt("serve.max_scale_factor")
	spritesDir := viper.GetString("serve.sprites_dir")
	iconsDir := viper.GetString("serve.icons_dir")

	doc, err := loadStyleDoc(styleDocPath)
	if err != nil {
		return err
	}

	reg := style.NewRegistry()
	loader := &style.Loader{
		Resolve: func(name string) (style.ArchiveDescriptor, error) {
			return style.ArchiveDescriptor{}, errs.New(errs.KindFatalConfig, fmt.Sprintf("no archive configured for source %q", name))
		},
		OpenA: func(inputFile string) (archive.Source, error) {
			return nil, errs.New(errs.KindFatalConfig, "archiveA opener not configured")
		},
		StyleDir: spritesDir,
	}

	factory := renderer.NewFactory(mapnikStyle, backgroundColor)
	binding, err := reg.Register(cmd.Context(), styleID, doc, loader, maxScaleFactor, factory, factory)
	if err != nil {
		return fmt.Errorf("register style %q: %w", styleID, err)
	}
	defer binding.Close()

	binding.Watermark = viper.GetString("serve.watermark")
	binding.StaticAttributionText = viper.GetString("serve.static_attribution")

	res := resolver.New(spritesDir, binding.LookupSource, nil, nil, logger)
	binding.ResourceFetcher = res.Fetcher(cmd.Context())

	availableIcons := map[string]bool{}
	if iconsDir != "" {
		entries, err := os.ReadDir(iconsDir)
		if err != nil {
			return fmt.Errorf("read icons dir: %w", err)
		}
		for _, e := range entries {
			if !e.IsDir() {
				availableIcons[e.Name()] = true
			}
		}
	}

	iconOpts := overlay.IconOptions{
		AllowInlineMarkerImages: viper.GetBool("serve.allow_inline_marker_images"),
		AllowRemoteMarkerIcons:  viper.GetBool("serve.allow_remote_marker_icons"),
		IconsDir:                iconsDir,
		AvailableIcons:          availableIcons,
	}

	handler := httpapi.NewHandler(reg, iconOpts, http.DefaultClient, logger)

	router := mux.NewRouter()
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	handler.RegisterRoutes(router)

	logger.Info("tile server listening", "addr", addr, "style_id", styleID, "max_scale_factor", maxScaleFactor)

	srv := &http.Server{Addr: addr, Handler: withCORS(router), ReadHeaderTimeout: 5 * time.Second}
	return srv.ListenAndServe()
}

// loadStyleDoc reads a style document from path, or returns an empty
// (sourceless) document when path is blank. Parsing the style-document
// schema itself is out of scope; this is just enough to let Load run.
func loadStyleDoc(path string) (map[string]any, error) {
	if path == "" {
		return map[string]any{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read style document: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse style document: %w", err)
	}
	return doc, nil
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
