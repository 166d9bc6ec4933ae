package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"stacbuild/internal/config"
	"stacbuild/internal/metrics"
	"stacbuild/internal/metrics/datadog"
	"stacbuild/internal/metrics/prompush"
	"stacbuild/internal/pipeline"

	// register all database backends with the extract factory.
	// the catalog config selects which one to use at runtime.
	_ "stacbuild/internal/extract/all"
)

// main is the entry point for the catalog build binary. It loads and
// validates the configs, optionally initializes a metrics backend, and
// executes the build-and-reconcile run.
func main() {
	var (
		catalogPath       string
		configsFlg        string
		readParent        bool
		testMode          bool
		limit             int
		key               string
		validate          bool
		metricsBackendFlg string
		pushGatewayURLFlg string
		dogstatsdAddrFlg  string
	)

	flag.StringVar(&catalogPath, "catalog", "configs/catalog.json", "parent catalog config JSON path")
	flag.StringVar(&configsFlg, "configs", "", "comma-separated collection config JSON paths")
	flag.BoolVar(&readParent, "readParentCatalog", false, "fetch the published catalog and reconcile against it")
	flag.BoolVar(&testMode, "testMode", false, "prefix collection ids with "+config.TestPrefix+" and read configs from the _test config folder")
	flag.IntVar(&limit, "limit", 0, "max rows extracted per collection (0 = all)")
	flag.StringVar(&key, "key", "", "Fernet key for encrypted db credentials (overrides env CATALOG_DB_KEY)")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "none", "metrics backend to use (pushgateway, datadog, none)")
	flag.StringVar(&pushGatewayURLFlg, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	flag.StringVar(&dogstatsdAddrFlg, "dogstatsd-addr", "", "DogStatsD address (overrides env DOGSTATSD_ADDR)")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	if key == "" {
		key = os.Getenv("CATALOG_DB_KEY")
	}

	opts := pipeline.Options{
		CatalogPath: catalogPath,
		ConfigPaths: splitPaths(configsFlg),
		ReadParent:  readParent,
		TestMode:    testMode,
		Limit:       limit,
		Key:         key,
	}

	if validate {
		_, _, issues, err := pipeline.Load(opts)
		if err != nil {
			fatalf("load config: %v", err)
		}
		for _, iss := range issues {
			fmt.Fprintf(os.Stderr, "%s\n", iss.Error())
		}
		if config.HasErrors(issues) {
			log.Printf("Configuration is invalid: %v", catalogPath)
			os.Exit(1)
		}
		log.Printf("Configuration is valid: %v", catalogPath)
		os.Exit(0)
	}

	// Decide metrics backend: flag → env → default.
	backendName := metricsBackendFlg
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}
	switch backendName {
	case "pushgateway":
		gwURL := pushGatewayURLFlg
		if gwURL == "" {
			gwURL = os.Getenv("PUSHGATEWAY_URL")
		}
		if gwURL == "" {
			gwURL = "http://localhost:9091"
		}

		b, err := prompush.NewBackend("stacbuild", gwURL)
		if err != nil {
			log.Printf("metrics: failed to init prom push backend: %v; using nop", err)
		} else {
			log.Printf("metrics: url=%v, backend=%v", gwURL, backendName)
			metrics.SetBackend(b)
			defer func() {
				if err := metrics.Flush(); err != nil {
					log.Printf("metrics: flush error: %v", err)
				}
			}()
		}

	case "datadog":
		addr := dogstatsdAddrFlg
		if addr == "" {
			addr = os.Getenv("DOGSTATSD_ADDR")
		}
		if addr == "" {
			addr = "127.0.0.1:8125"
		}

		b, err := datadog.NewBackend(datadog.Config{Addr: addr, Namespace: "stacbuild."})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
		} else {
			log.Printf("metrics: addr=%v, backend=%v", addr, backendName)
			metrics.SetBackend(b)
			defer func() {
				if err := metrics.Flush(); err != nil {
					log.Printf("metrics: flush error: %v", err)
				}
			}()
		}

	case "", "none":
		if *verbose {
			log.Printf("metrics: disabled (backend=%q)", backendName)
		}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
	}

	ctx := context.Background()
	start := time.Now()

	res, err := pipeline.Run(ctx, opts)
	if err != nil {
		log.Fatalf("%v", err)
	}

	for id, d := range res.Decisions {
		if *verbose {
			log.Printf("collection %s: %s", id, d)
		}
	}
	log.Printf("run %s: %d collection(s) written in %s",
		res.RunID, len(res.Touched), time.Since(start).Truncate(time.Millisecond))
}

func splitPaths(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
