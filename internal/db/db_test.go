//go:build integration

// Package db provides integration tests for the podcast graph queries.
package db

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var testDB *Client
var testContainer testcontainers.Container

// TestMain starts a SurrealDB container, loads a small podcast graph and
// runs the package tests against it.
func TestMain(m *testing.M) {
	// Disable ryuk (cleanup container) as it can cause issues in some environments
	os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")

	ctx := context.Background()

	var err error
	testContainer, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "surrealdb/surrealdb:v2.3.7",
			ExposedPorts: []string{"8000/tcp"},
			Cmd:          []string{"start", "--log", "info", "--user", "root", "--pass", "root"},
			WaitingFor:   wait.ForLog("Started web server").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("Failed to start SurrealDB container: %v", err)
	}

	host, err := testContainer.Host(ctx)
	if err != nil {
		log.Fatalf("Failed to get container host: %v", err)
	}
	// Workaround: testcontainers may return "null" as host in some environments
	if host == "" || host == "null" {
		host = "localhost"
	}
	mappedPort, err := testContainer.MappedPort(ctx, "8000")
	if err != nil {
		log.Fatalf("Failed to get mapped port: %v", err)
	}

	testDB, err = NewClient(ctx, Config{
		URL:       fmt.Sprintf("ws://%s:%s/rpc", host, mappedPort.Port()),
		Namespace: "test",
		Database:  "test",
		Username:  "root",
		Password:  "root",
		AuthLevel: "root",
	}, nil)
	if err != nil {
		log.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := testDB.InitSchema(ctx); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}
	if err := seedGraph(ctx, testDB); err != nil {
		log.Fatalf("Failed to seed graph: %v", err)
	}

	code := m.Run()

	_ = testDB.Close(ctx)
	_ = testContainer.Terminate(ctx)

	os.Exit(code)
}

// seedSQL builds this graph:
//
//	280 "Por Que As Pessoas Compartilham Fake News" --similar_to(0.9)--> 281
//	280 --similar_to(0.7)--> 282, 280 --references_episode--> 283
//	281 --similar_to(0.8)--> 284 (second hop from 280)
//
// Segment 283/1 stores a malformed embedding.
const seedSQL = `
	CREATE episode:280 SET episode_number = 280, title = "Por Que As Pessoas Compartilham Fake News", url = "https://example.com/280", community = 1;
	CREATE episode:281 SET episode_number = 281, title = "Redes Sociais", url = "https://example.com/281", community = 1;
	CREATE episode:282 SET episode_number = 282, title = "Psicologia da Crença", community = 2;
	CREATE episode:283 SET episode_number = 283, title = "Desinformação", url = "https://example.com/283", community = 2;
	CREATE episode:284 SET episode_number = 284, title = "Memória", url = "https://example.com/284", community = 1;

	CREATE segment:[280, 0] SET episode_number = 280, chunk_index = 0, text = "Por que as pessoas compartilham fake news?", embedding = [1.0, 0.0, 0.0];
	CREATE segment:[280, 1] SET episode_number = 280, chunk_index = 1, text = "Fake news se espalham mais rápido.", embedding = [0.9, 0.1, 0.0];
	CREATE segment:[281, 0] SET episode_number = 281, chunk_index = 0, text = "Discussão sobre psicologia das redes sociais.", embedding = [0.0, 1.0, 0.0];
	CREATE segment:[282, 0] SET episode_number = 282, chunk_index = 0, text = "Crenças e confirmação.", embedding = [0.0, 0.0, 1.0];
	CREATE segment:[283, 0] SET episode_number = 283, chunk_index = 0, text = "Impacto da desinformação.", embedding = [0.5, 0.5, 0.0];
	CREATE segment:[283, 1] SET episode_number = 283, chunk_index = 1, text = "Segmento com vetor quebrado.", embedding = [0.1, "x"];
	CREATE segment:[284, 0] SET episode_number = 284, chunk_index = 0, text = "Como a memória funciona.", embedding = [0.2, 0.2, 0.9];

	RELATE episode:280->has_segment->segment:[280, 0];
	RELATE episode:280->has_segment->segment:[280, 1];
	RELATE episode:281->has_segment->segment:[281, 0];
	RELATE episode:282->has_segment->segment:[282, 0];
	RELATE episode:283->has_segment->segment:[283, 0];
	RELATE episode:283->has_segment->segment:[283, 1];
	RELATE episode:284->has_segment->segment:[284, 0];

	RELATE episode:280->similar_to->episode:281 SET score = 0.9;
	RELATE episode:280->similar_to->episode:282 SET score = 0.7;
	RELATE episode:281->similar_to->episode:284 SET score = 0.8;
	RELATE episode:280->references_episode->episode:283;
`

func seedGraph(ctx context.Context, c *Client) error {
	if err := c.WipeData(ctx); err != nil {
		return err
	}
	if _, err := c.Query(ctx, seedSQL, nil); err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	return nil
}
