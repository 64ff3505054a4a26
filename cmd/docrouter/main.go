// docrouter runs the full document extraction process: the HTTP API
// surface (spec.md §6) and the OCR/LLM worker pools (spec.md §4.I/§4.J) in
// one process, matching cmd/tarsy's single-binary shape.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/joho/godotenv"

	"github.com/analytiqhub/docrouter/pkg/accesscontrol"
	"github.com/analytiqhub/docrouter/pkg/apiserver"
	"github.com/analytiqhub/docrouter/pkg/blob"
	"github.com/analytiqhub/docrouter/pkg/cleanup"
	"github.com/analytiqhub/docrouter/pkg/config"
	"github.com/analytiqhub/docrouter/pkg/credit"
	"github.com/analytiqhub/docrouter/pkg/crypto"
	"github.com/analytiqhub/docrouter/pkg/intake"
	"github.com/analytiqhub/docrouter/pkg/llmprovider"
	"github.com/analytiqhub/docrouter/pkg/mongostore"
	"github.com/analytiqhub/docrouter/pkg/ocr"
	"github.com/analytiqhub/docrouter/pkg/orchestrator"
	"github.com/analytiqhub/docrouter/pkg/pipeline"
	"github.com/analytiqhub/docrouter/pkg/prompt"
	"github.com/analytiqhub/docrouter/pkg/registry"
	"github.com/analytiqhub/docrouter/pkg/results"
	"github.com/analytiqhub/docrouter/pkg/tagorg"
	"github.com/analytiqhub/docrouter/pkg/workerpool"
	"github.com/analytiqhub/docrouter/pkg/workqueue"
)

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir", getEnv("CONFIG_DIR", "./deploy/config"), "Path to configuration directory")
	flag.Parse()

	if err := godotenv.Load(*configDir + "/.env"); err != nil {
		log.Printf("warning: could not load .env from %s: %v", *configDir, err)
	}

	cfg, err := config.Initialize()
	if err != nil {
		log.Fatalf("failed to initialize configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := mongostore.NewClient(ctx, cfg.MongoURI, cfg.EnvName)
	if err != nil {
		log.Fatalf("failed to connect to mongodb: %v", err)
	}
	defer store.Close(context.Background())

	cipher := crypto.New(cfg.NextAuthSecret)

	filesReg := blob.NewRegistry(store.DB())
	ocrReg := blob.NewRegistry(store.DB())
	filesBucket, err := filesReg.Bucket(blob.BucketFiles)
	if err != nil {
		log.Fatalf("failed to open files bucket: %v", err)
	}
	ocrBucket, err := ocrReg.Bucket(blob.BucketOCR)
	if err != nil {
		log.Fatalf("failed to open ocr bucket: %v", err)
	}
	ocrArtifacts := ocr.NewStore(ocrBucket)

	docs := registry.New(store.Collection(mongostore.CollDocs), filesReg, ocrReg, store.Collection(mongostore.CollLLMRuns))
	tags := tagorg.NewTags(store.Collection(mongostore.CollTags), store.Collection(mongostore.CollDocs), store.Collection(mongostore.CollPromptRevisions))
	orgs := tagorg.NewOrganizations(store.Collection(mongostore.CollOrganizations))
	promptStore := prompt.New(store.Collection(mongostore.CollPromptRevisions), store.Collection(mongostore.CollSchemaRevisions))
	resultStore := results.New(store.Collection(mongostore.CollLLMRuns))

	providers := llmprovider.New(store.Collection(mongostore.CollLLMProviders), cipher)
	if err := providers.Seed(ctx, llmprovider.DefaultCanonical, nil, os.LookupEnv); err != nil {
		log.Fatalf("failed to seed llm provider registry: %v", err)
	}
	caps := llmprovider.NewCapabilities(llmprovider.DefaultCanonical, nil)

	creditGate := credit.New(nil, nil)
	orch := orchestrator.New(docs, promptStore, resultStore, providers, caps, ocrArtifacts, creditGate, orchestrator.LangchainCaller{}, nil)

	queues := workqueue.NewRegistry(store)

	converter := intake.NewLibreOfficeConverter(getEnv("LIBREOFFICE_BIN", "libreoffice"))
	in := intake.New(docs, filesBucket, tags, queues, converter, cfg.ConverterLockPath)

	sessions := accesscontrol.NewSessionIssuer(cfg.NextAuthSecret, 24*time.Hour)
	tokens := accesscontrol.NewTokens(store.Collection(mongostore.CollAccessTokens), cipher)
	users := accesscontrol.NewUsers(store.Collection(mongostore.CollUsers))
	resolver := accesscontrol.NewResolver(sessions, tokens, users, orgs)

	srv := apiserver.New(resolver, tokens, orgs, tags, docs, filesReg, ocrArtifacts, in, promptStore, orch, resultStore, creditGate)

	analyzer, err := newTextractAnalyzer(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to configure textract analyzer: %v", err)
	}

	ocrPool := workerpool.NewPool("ocr", queues.Queue("ocr"), queues.Queue("ocr_err"), &pipeline.OCRHandler{
		Docs:     docs,
		Files:    filesBucket,
		Artifact: ocrArtifacts,
		Analyzer: analyzer,
		Queues:   queues,
	}, cfg.NWorkers)
	llmPool := workerpool.NewPool("llm", queues.Queue("llm"), queues.Queue("llm_err"), &pipeline.LLMHandler{
		Docs:         docs,
		Orchestrator: orch,
	}, cfg.NWorkers)

	ocrPool.Start(ctx)
	llmPool.Start(ctx)
	defer ocrPool.Stop()
	defer llmPool.Stop()

	retention := cleanup.NewService(&cfg.Retention, queues, []string{"ocr", "ocr_err", "llm", "llm_err"})
	retention.Start(ctx)
	defer retention.Stop()

	slog.Info("docrouter starting", "http_port", cfg.HTTPPort, "n_workers", cfg.NWorkers)

	go func() {
		if err := srv.Router().Run(":" + cfg.HTTPPort); err != nil {
			log.Fatalf("http server exited: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
}

// newTextractAnalyzer builds an ocr.TextractAdapter from cfg's static AWS
// credentials (spec.md §4.D, §6 environment: AWS_ACCESS_KEY_ID/
// AWS_SECRET_ACCESS_KEY/AWS_S3_BUCKET_NAME).
func newTextractAnalyzer(ctx context.Context, cfg *config.Config) (*ocr.TextractAdapter, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, "",
		)),
	)
	if err != nil {
		return nil, err
	}
	return ocr.NewTextractAdapter(textract.NewFromConfig(awsCfg), s3.NewFromConfig(awsCfg), cfg.AWSS3Bucket), nil
}
