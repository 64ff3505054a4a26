// docrouter-worker runs only the OCR/LLM pipeline worker pools (spec.md
// §4.I/§4.J), with no HTTP surface — for deployments that split API and
// worker processes, e.g. so worker replica count can scale independently of
// request load.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/joho/godotenv"

	"github.com/analytiqhub/docrouter/pkg/blob"
	"github.com/analytiqhub/docrouter/pkg/config"
	"github.com/analytiqhub/docrouter/pkg/credit"
	"github.com/analytiqhub/docrouter/pkg/crypto"
	"github.com/analytiqhub/docrouter/pkg/llmprovider"
	"github.com/analytiqhub/docrouter/pkg/mongostore"
	"github.com/analytiqhub/docrouter/pkg/ocr"
	"github.com/analytiqhub/docrouter/pkg/orchestrator"
	"github.com/analytiqhub/docrouter/pkg/pipeline"
	"github.com/analytiqhub/docrouter/pkg/prompt"
	"github.com/analytiqhub/docrouter/pkg/registry"
	"github.com/analytiqhub/docrouter/pkg/results"
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

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, "",
		)),
	)
	if err != nil {
		log.Fatalf("failed to load aws config: %v", err)
	}
	analyzer := ocr.NewTextractAdapter(textract.NewFromConfig(awsCfg), s3.NewFromConfig(awsCfg), cfg.AWSS3Bucket)

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

	slog.Info("docrouter-worker started", "n_workers", cfg.NWorkers)
	<-ctx.Done()

	slog.Info("shutting down worker pools")
	ocrPool.Stop()
	llmPool.Stop()
}
