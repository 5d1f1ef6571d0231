package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/wikiscraper/internal/config"
	"github.com/IshaanNene/wikiscraper/internal/parser"
	"github.com/IshaanNene/wikiscraper/internal/wiki"
)

var (
	searchLimit  int
	getSave      bool
	getOutputDir string
	getEncoding  string
	getStorage   string
	pageSearch   bool
	linksType    string
	linksLimit   int
	linksNS      int
	mapDepth     int
	mapGraph     bool
	mapJSON      bool
	mapLinkLimit int
	mapNamespace int
)

// namespaceFromConfig is the map --namespace default: keep mapper.namespace.
const namespaceFromConfig = -2

// searchCmd creates the "search" subcommand.
func searchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search article titles",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if searchLimit < 1 {
				return fmt.Errorf("invalid limit %d: must be greater than 0", searchLimit)
			}
			query := strings.Join(args, " ")
			return runWithApp(cmd, false, func(ctx context.Context, a *app) error {
				titles, err := a.service.SearchArticles(ctx, query, searchLimit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(titles) == 0 {
					fmt.Fprintf(out, "No articles found for %q\n", query)
					return nil
				}
				for i, t := range titles {
					fmt.Fprintf(out, "%2d. %s\n", i+1, t)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	return cmd
}

// getCmd creates the "get" subcommand: search, then print or save the plain text of the first hit.
func getCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get [query]",
		Short: "Print or save the plain text of the best matching article",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runWithApp(cmd, getSave, func(ctx context.Context, a *app) error {
				out := cmd.OutOrStdout()
				if !getSave {
					article, err := a.service.ArticleContent(ctx, query)
					if err != nil {
						return err
					}
					if !article.Found() {
						fmt.Fprintf(out, "No content found for %q\n", query)
						return nil
					}
					fmt.Fprintf(out, "# %s\n\n%s\n", article.Title, article.Content)
					return nil
				}

				article, location, err := a.service.SaveArticle(ctx, query)
				if err != nil {
					return err
				}
				if location == "" {
					fmt.Fprintf(out, "No content found for %q, nothing saved\n", query)
					return nil
				}
				fmt.Fprintf(out, "Saved %q (%d bytes) to %s\n", article.Title, len(article.Content), location)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&getSave, "save", "s", false, "save the content instead of printing it")
	cmd.Flags().StringVarP(&getOutputDir, "output", "o", "", "output directory for file storage")
	cmd.Flags().StringVar(&getEncoding, "encoding", "", "file encoding: utf-8, latin-1, iso-8859-1")
	cmd.Flags().StringVar(&getStorage, "storage", "", "storage backend: file, mongodb")
	return cmd
}

// pageCmd creates the "page" subcommand: fetch the HTML page and print its extracted structure.
func pageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "page [title]",
		Short: "Fetch an article page and print its structure as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.Join(args, " ")
			return runWithApp(cmd, false, func(ctx context.Context, a *app) error {
				var (
					doc *parser.Document
					err error
				)
				if pageSearch {
					doc, err = a.scraper.FetchPageWithSearch(ctx, title)
				} else {
					doc, err = a.scraper.FetchPage(ctx, title)
				}
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), parser.ExtractArticle(doc))
			})
		},
	}
	cmd.Flags().BoolVar(&pageSearch, "search", false, "treat the argument as a search query and fetch the first hit")
	return cmd
}

// linksCmd creates the "links" subcommand.
func linksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "links [title]",
		Short: "List the links of a page",
		Long: fmt.Sprintf(`List the links of a page through the MediaWiki API.

Link types: %s`, strings.Join(wiki.LinkTypeNames, ", ")),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lt, err := wiki.ParseLinkType(linksType)
			if err != nil {
				return err
			}
			if linksLimit < 0 {
				return fmt.Errorf("invalid limit %d: must be 0 (all) or greater", linksLimit)
			}
			opts := wiki.LinkOptions{Limit: linksLimit}
			if linksNS >= 0 {
				opts.Namespace = wiki.Namespace(linksNS)
			}

			title := strings.Join(args, " ")
			return runWithApp(cmd, false, func(ctx context.Context, a *app) error {
				list, err := a.scraper.Links(ctx, title, lt, opts)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s links of %q (%d)\n", list.Type, list.Title, len(list.Items))
				for _, item := range list.Items {
					fmt.Fprintf(out, "  %s\n", item)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&linksType, "type", "t", "internal", "link type")
	cmd.Flags().IntVarP(&linksLimit, "limit", "n", 0, "maximum number of links (0 = all)")
	cmd.Flags().IntVar(&linksNS, "namespace", -1, "namespace filter for internal and linkshere (-1 = any)")
	return cmd
}

// categoriesCmd creates the "categories" subcommand.
func categoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories [title]",
		Short: "List the visible categories of a page",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.Join(args, " ")
			return runWithApp(cmd, false, func(ctx context.Context, a *app) error {
				cats, err := a.scraper.Categories(ctx, title)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, c := range cats {
					fmt.Fprintln(out, c)
				}
				return nil
			})
		},
	}
}

// mapCmd creates the "map" subcommand.
func mapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "map [title]",
		Short: "Map the internal links of a page recursively",
		Long: `Map the internal links of a page depth-first.

The root is at depth 1. Pages at the maximum depth are expanded, deeper pages
and pages already expanded elsewhere in the map appear as leaves.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("depth") && mapDepth < 1 {
				return fmt.Errorf("invalid depth %d: must be greater than 0", mapDepth)
			}
			if cmd.Flags().Changed("namespace") && mapNamespace < -1 {
				return fmt.Errorf("invalid namespace %d: must be -1 (any) or greater", mapNamespace)
			}
			root := strings.Join(args, " ")
			return runWithApp(cmd, false, func(ctx context.Context, a *app) error {
				depth := a.cfg.Mapper.MaxDepth
				if cmd.Flags().Changed("depth") {
					depth = mapDepth
				}

				start := time.Now()
				out := cmd.OutOrStdout()
				if mapGraph {
					g, err := a.service.MapGraph(ctx, root, depth)
					if err != nil {
						return err
					}
					return writeJSON(out, g)
				}

				tree, err := a.service.MapTree(ctx, root, depth)
				if err != nil {
					return err
				}
				if mapJSON {
					return writeJSON(out, tree)
				}
				fmt.Fprint(out, tree.Render())
				fmt.Fprintf(out, "\n%d nodes in %s\n", tree.Count(), time.Since(start).Round(time.Millisecond))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&mapDepth, "depth", "d", 1, "maximum depth, root = 1 (default from config)")
	cmd.Flags().BoolVar(&mapGraph, "graph", false, "print a deduplicated node/edge graph as JSON")
	cmd.Flags().BoolVar(&mapJSON, "json", false, "print the tree as JSON")
	cmd.Flags().IntVar(&mapLinkLimit, "link-limit", -1, "maximum links followed per page (0 = all, -1 = use config)")
	cmd.Flags().IntVar(&mapNamespace, "namespace", namespaceFromConfig, "only follow links in this namespace (-1 = any, default from config)")
	return cmd
}

// testCmd creates the "test" subcommand: a connectivity check against the API.
func testCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Check configuration and connectivity to Wikipedia",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, false, func(ctx context.Context, a *app) error {
				start := time.Now()
				resp, err := a.scraper.Query(ctx, url.Values{
					"meta":   {"siteinfo"},
					"siprop": {"general"},
				})
				if err != nil {
					return fmt.Errorf("connectivity check failed: %w", err)
				}

				var q struct {
					General struct {
						SiteName  string `json:"sitename"`
						Lang      string `json:"lang"`
						Generator string `json:"generator"`
					} `json:"general"`
				}
				if len(resp.Query) > 0 {
					if err := json.Unmarshal(resp.Query, &q); err != nil {
						return fmt.Errorf("decode siteinfo: %w", err)
					}
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "OK  %s (%s) %s\n", q.General.SiteName, q.General.Lang, a.scraper.BaseURL())
				fmt.Fprintf(out, "    %s, answered in %s\n", q.General.Generator, time.Since(start).Round(time.Millisecond))
				return nil
			})
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateCLIInputs(); err != nil {
				return err
			}
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			applyCLIOverrides(cfg)
			out, err := config.Dump(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "wikiscraper %s\n", config.Version)
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
