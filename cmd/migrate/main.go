package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/letteros/letteros/internal/config"
	"github.com/letteros/letteros/internal/pkg/awsconf"
	"github.com/letteros/letteros/internal/repository/dynamo"
	"github.com/letteros/letteros/internal/repository/postgres"
)

// migrate prepares the configured storage backend: it applies the schema for
// postgres and creates the single table for dynamodb. --list prints the
// tables instead.
func main() {
	listOnly := false
	for _, a := range os.Args[1:] {
		if a == "--list" {
			listOnly = true
		}
	}

	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	switch cfg.Storage.Backend {
	case "postgres":
		migratePostgres(ctx, cfg.Storage, listOnly)
	case "dynamodb":
		migrateDynamo(ctx, cfg.Storage, listOnly)
	case "memory":
		log.Println("Memory backend has no schema; nothing to do")
	default:
		log.Fatalf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func migratePostgres(ctx context.Context, cfg config.StorageConfig, listOnly bool) {
	dsn := cfg.DatabaseURL
	if dsn == "" {
		log.Fatal("DATABASE_URL is required")
	}
	db, err := postgres.Open(ctx, dsn)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer db.Close()
	log.Println("Connected to database")

	if listOnly {
		rows, err := db.QueryContext(ctx, "SELECT tablename FROM pg_tables WHERE schemaname='public' ORDER BY tablename")
		if err != nil {
			log.Fatal(err)
		}
		defer rows.Close()
		n := 0
		for rows.Next() {
			var t string
			if err := rows.Scan(&t); err != nil {
				log.Fatal(err)
			}
			fmt.Println(" ", t)
			n++
		}
		fmt.Printf("Total: %d tables\n", n)
		return
	}

	if err := postgres.Migrate(ctx, db); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Println("Migrations complete")
}

func migrateDynamo(ctx context.Context, cfg config.StorageConfig, listOnly bool) {
	awsCfg, err := awsconf.Load(ctx, cfg.AWSRegion, cfg.AWSProfile)
	if err != nil {
		log.Fatalf("aws config: %v", err)
	}
	client := dynamodb.NewFromConfig(awsCfg)

	if listOnly {
		out, err := client.ListTables(ctx, &dynamodb.ListTablesInput{})
		if err != nil {
			log.Fatal(err)
		}
		for _, t := range out.TableNames {
			fmt.Println(" ", t)
		}
		fmt.Printf("Total: %d tables\n", len(out.TableNames))
		return
	}

	created, err := dynamo.CreateTable(ctx, client, cfg.DynamoDBTable)
	if err != nil {
		log.Fatalf("create table %s: %v", cfg.DynamoDBTable, err)
	}
	if created {
		log.Printf("Created table %s", cfg.DynamoDBTable)
	} else {
		log.Printf("Table %s already exists", cfg.DynamoDBTable)
	}
}
