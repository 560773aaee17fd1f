package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"clipforge/api"
	"clipforge/cache"
	"clipforge/config"
	"clipforge/feeds"
	"clipforge/kafka"
	"clipforge/pipeline"
	"clipforge/publish"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "generate":
		err = runGenerate(os.Args[2:])
	case "serve":
		err = runServe(os.Args[2:])
	case "worker":
		err = runWorker(os.Args[2:])
	case "feed":
		err = runFeed(os.Args[2:])
	case "cache":
		err = runCache(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: clipforge <command> [flags]

commands:
  generate   run the pipeline for one topic
  serve      start the HTTP API server
  worker     consume generation requests from Kafka
  feed       list feed headlines as candidate topics
  cache      manage the content cache (cache clear)`)
}

// setFlags collects repeatable -set key=value overrides.
type setFlags []string

func (s *setFlags) String() string     { return strings.Join(*s, ",") }
func (s *setFlags) Set(v string) error { *s = append(*s, v); return nil }

// loadConfig resolves configuration from file, env and -set overrides.
func loadConfig(path string, sets []string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if err := config.ApplySet(&cfg, sets); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// buildEngine wires the cache backend, provider registry, runner and
// orchestrator from resolved configuration.
func buildEngine(ctx context.Context, cfg config.Config) (*pipeline.Orchestrator, *pipeline.Tracker, *cache.Cache, error) {
	var store cache.Store
	var err error
	switch cfg.Cache.Backend {
	case "redis":
		store, err = cache.NewRedisStore(cfg.Cache.RedisAddr, cfg.Cache.RedisDB)
	default:
		store, err = cache.NewDiskStore(cfg.Cache.Dir)
	}
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open cache: %w", err)
	}

	registry, err := pipeline.BuildRegistry(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	c := cache.New(store)
	tracker := pipeline.NewTracker()
	runner := pipeline.NewRunner(c, cfg.Retry)
	return pipeline.NewOrchestrator(cfg, registry, runner, tracker), tracker, c, nil
}

func runGenerate(args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	configPath := fs.String("config", "clipforge.json", "Path to config file")
	topic := fs.String("topic", "", "Topic to generate a video for")
	topicFile := fs.String("topic-file", "", "JSON file with topic and config overrides")
	doPublish := fs.Bool("publish", false, "Publish artifacts after a successful run")
	var sets setFlags
	fs.Var(&sets, "set", "Config override as dotted.path=value (repeatable)")
	fs.Parse(args)

	cfg, err := loadConfig(*configPath, sets)
	if err != nil {
		return err
	}
	if *topicFile != "" {
		fileTopic, err := config.LoadTopicFile(*topicFile, &cfg)
		if err != nil {
			return err
		}
		if *topic == "" {
			*topic = fileTopic
		}
	}
	if *topic == "" {
		return fmt.Errorf("a topic is required (-topic or -topic-file)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orch, _, _, err := buildEngine(ctx, cfg)
	if err != nil {
		return err
	}

	res := orch.Run(ctx, *topic)
	if !res.Success {
		return fmt.Errorf("pipeline failed: %s", res.Error)
	}
	fmt.Printf("✅ video: %s\n   metadata: %s\n", res.VideoPath, res.MetadataPath)

	if *doPublish {
		if err := publish.Run(ctx, cfg.Publish, res); err != nil {
			return fmt.Errorf("publish: %w", err)
		}
	}
	return nil
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "clipforge.json", "Path to config file")
	addr := fs.String("addr", ":8080", "Listen address")
	var sets setFlags
	fs.Var(&sets, "set", "Config override as dotted.path=value (repeatable)")
	fs.Parse(args)

	cfg, err := loadConfig(*configPath, sets)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orch, tracker, c, err := buildEngine(ctx, cfg)
	if err != nil {
		return err
	}

	server := api.NewServer(cfg, orch, tracker, c)
	log.Printf("🚀 serving on %s", *addr)
	return server.Router().Run(*addr)
}

func runWorker(args []string) error {
	fs := flag.NewFlagSet("worker", flag.ExitOnError)
	configPath := fs.String("config", "clipforge.json", "Path to config file")
	var sets setFlags
	fs.Var(&sets, "set", "Config override as dotted.path=value (repeatable)")
	fs.Parse(args)

	cfg, err := loadConfig(*configPath, sets)
	if err != nil {
		return err
	}
	if len(cfg.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required for the worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orch, _, _, err := buildEngine(ctx, cfg)
	if err != nil {
		return err
	}

	worker, err := kafka.NewWorker(cfg.Kafka, orch)
	if err != nil {
		return err
	}
	defer worker.Close()

	if err := worker.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

func runFeed(args []string) error {
	fs := flag.NewFlagSet("feed", flag.ExitOnError)
	configPath := fs.String("config", "clipforge.json", "Path to config file")
	feed := fs.String("feed", feeds.DefaultPreset, "Feed preset name or URL (use -list to see presets)")
	count := fs.Int("count", 10, "Number of headlines to fetch")
	list := fs.Bool("list", false, "List available feed presets and exit")
	enqueue := fs.Bool("enqueue", false, "Enqueue headlines as generation requests via Kafka")
	fs.Parse(args)

	if *list {
		fmt.Println("Available feed presets:")
		for _, name := range feeds.PresetNames() {
			fmt.Printf("  %-4s %s\n", name, feeds.Presets[name])
		}
		return nil
	}

	topics, err := feeds.Fetch(feeds.ResolveURL(*feed), *count)
	if err != nil {
		return err
	}
	for i, t := range topics {
		fmt.Printf("%2d. %s\n    %s\n", i+1, t.Title, t.URL)
	}

	if *enqueue {
		cfg, err := loadConfig(*configPath, nil)
		if err != nil {
			return err
		}
		if len(cfg.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers is required to enqueue")
		}
		titles := make([]string, len(topics))
		for i, t := range topics {
			titles[i] = t.Title
		}
		if err := kafka.Publish(cfg.Kafka, titles); err != nil {
			return err
		}
		fmt.Printf("📤 enqueued %d topics\n", len(titles))
	}
	return nil
}

func runCache(args []string) error {
	if len(args) < 1 || args[0] != "clear" {
		return fmt.Errorf("usage: clipforge cache clear [-scope <capability-or-stage>]")
	}
	fs := flag.NewFlagSet("cache clear", flag.ExitOnError)
	configPath := fs.String("config", "clipforge.json", "Path to config file")
	scope := fs.String("scope", "", "Clear only one capability or stage (empty clears everything)")
	fs.Parse(args[1:])

	cfg, err := loadConfig(*configPath, nil)
	if err != nil {
		return err
	}

	var store cache.Store
	switch cfg.Cache.Backend {
	case "redis":
		store, err = cache.NewRedisStore(cfg.Cache.RedisAddr, cfg.Cache.RedisDB)
	default:
		store, err = cache.NewDiskStore(cfg.Cache.Dir)
	}
	if err != nil {
		return err
	}

	if err := cache.New(store).Clear(context.Background(), *scope); err != nil {
		return err
	}
	if *scope == "" {
		fmt.Println("🧹 cache cleared")
	} else {
		fmt.Printf("🧹 cache cleared (scope: %s)\n", *scope)
	}
	return nil
}
