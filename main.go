// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"crypto/tls"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ttbt-io/vtac/backend"
)

var (
	addr           = flag.String("addr", ":8080", "The TCP address to listen to")
	useMockAuth    = flag.Bool("use-mock-auth", false, "Use Mock Authentication. For testing purposes only.")
	debugMode      = flag.Bool("debug", false, "Enable debug mode")
	seedDemo       = flag.Bool("seed-demo", false, "Seed the in-memory stores with the demo club fixtures")
	tlsCert        = flag.String("tls-cert", "", "Path to main HTTP TLS certificate")
	tlsKey         = flag.String("tls-key", "", "Path to main HTTP TLS key")
	authCookieName = flag.String("auth-cookie-name", "vtac_auth", "Name of the cookie containing the JWT")
	authJWKSURL    = flag.String("auth-jwks-url", "", "Comma-separated list of [ISSUER=]URL for JWKS endpoints")
	corsOrigins    = flag.String("cors-origins", "", "Comma-separated list of allowed browser origins")
)

// main starts the web server and registers the API handlers.
func main() {
	flag.Parse()

	if !*useMockAuth && *authJWKSURL == "" {
		log.Fatal("--auth-jwks-url is required unless --use-mock-auth is set")
	}

	var mainTLSCert *tls.Certificate
	if *tlsCert != "" && *tlsKey != "" {
		cert, err := tls.LoadX509KeyPair(*tlsCert, *tlsKey)
		if err != nil {
			log.Fatalf("Failed to load main TLS cert/key: %v", err)
		}
		mainTLSCert = &cert
	}

	geminiKey := os.Getenv("VTAC_GEMINI_API_KEY")
	if geminiKey == "" {
		log.Println("Warning: No VTAC_GEMINI_API_KEY provided. Assistant features will be disabled.")
	}

	server, err := backend.StartServer(backend.Options{
		Addr:                  *addr,
		Cert:                  mainTLSCert,
		UseMockAuth:           *useMockAuth,
		Debug:                 *debugMode,
		SeedDemoData:          *seedDemo,
		UseProductionTimeouts: true,
		AuthCookieName:        *authCookieName,
		AuthJWKSURL:           *authJWKSURL,
		CORSOrigins:           *corsOrigins,
		GeminiAPIKey:          geminiKey,
	})
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	// Wait for interrupt signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Shutdown error: %v", err)
	} else {
		log.Println("Gracefully stopped.")
	}
}
