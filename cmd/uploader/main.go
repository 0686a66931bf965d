// Command uploader logs in, uploads a photo with progress output, and prints
// the resulting public URL.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/mpratt/folio-api/client"
)

func main() {
	_ = godotenv.Load()

	server := flag.String("server", envOr("FOLIO_SERVER", "http://localhost:8080"), "API base URL")
	email := flag.String("email", os.Getenv("FOLIO_EMAIL"), "account email")
	password := flag.String("password", os.Getenv("FOLIO_PASSWORD"), "account password")
	caption := flag.String("caption", "", "optional caption (max 500 chars)")
	raw := flag.Bool("raw", false, "skip client-side processing")
	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatal("usage: uploader [flags] <image file>")
	}
	if *email == "" || *password == "" {
		log.Fatal("email and password are required (flags or FOLIO_EMAIL/FOLIO_PASSWORD)")
	}

	limits := client.DefaultIntakeLimits()
	if *raw {
		limits.Process = false
	}
	c := client.New(*server, client.WithIntakeLimits(limits))

	ctx := context.Background()
	if err := c.Login(ctx, *email, *password); err != nil {
		log.Fatalf("login: %v", err)
	}

	up, err := c.PrepareFile(flag.Arg(0))
	if err != nil {
		log.Fatalf("intake: %v", err)
	}
	for _, warn := range up.Warnings {
		log.Printf("warning: %s", warn)
	}

	photo, err := c.UploadPhoto(ctx, up, *caption, func(pct int) {
		fmt.Printf("\ruploading... %3d%%", pct)
	})
	fmt.Println()
	if err != nil {
		log.Fatalf("upload: %v", err)
	}

	fmt.Printf("uploaded %s (%d bytes)\n%s\n", photo.FileName, photo.FileSize, photo.PublicURL)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
