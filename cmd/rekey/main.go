// Command rekey re-encrypts every stored document container from an old
// document key to the current DOCUMENT_ENCRYPTION_KEY. With -generate-key it
// only prints a new key suitable for either variable.
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"book-submission-api/config"
	"book-submission-api/encryption"
	"book-submission-api/services"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	var (
		oldKeyEnv string
		workers   int
		dryRun    bool
		genKey    bool
	)

	flag.StringVar(&oldKeyEnv, "old-key-env", "OLD_DOCUMENT_ENCRYPTION_KEY", "environment variable holding the key the containers are currently sealed with")
	flag.IntVar(&workers, "workers", 4, "number of containers re-encrypted concurrently")
	flag.BoolVar(&dryRun, "dry-run", false, "verify every container under the old key without rewriting it")
	flag.BoolVar(&genKey, "generate-key", false, "print a fresh hex document key and exit")
	flag.Parse()

	if genKey {
		key, err := encryption.GenerateKey()
		if err != nil {
			log.Fatalf("generate key: %v", err)
		}
		fmt.Println(hex.EncodeToString(key))
		return
	}

	if workers <= 0 {
		log.Fatal("workers must be greater than 0")
	}

	oldCodec, err := config.LoadCodecFromEnv(oldKeyEnv)
	if err != nil {
		log.Fatalf("old key: %v", err)
	}
	newCodec, err := config.LoadDocumentCodec()
	if err != nil {
		log.Fatalf("new key: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := config.NewStorageBackend(ctx)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	summary, err := services.RekeyDocuments(ctx, backend, oldCodec, newCodec, workers, dryRun)
	if err != nil {
		log.Fatalf("rekey failed: %v", err)
	}

	fmt.Printf("Containers scanned: %d, rekeyed: %d, skipped: %d, failed: %d\n",
		summary.Scanned, summary.Rekeyed, summary.Skipped, summary.Failed)
	for _, locator := range summary.SkipNames {
		fmt.Printf("  skipped %s\n", locator)
	}

	if dryRun {
		fmt.Println("Dry run complete. No containers were rewritten.")
	}

	if summary.Skipped > 0 || summary.Failed > 0 {
		os.Exit(2)
	}
}
