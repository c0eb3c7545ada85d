package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/opscart/k8s-chaos-verifier/pkg/config"
	"github.com/opscart/k8s-chaos-verifier/pkg/models"
	"github.com/opscart/k8s-chaos-verifier/pkg/storage"
)

func main() {
	cfg := config.NewConfig()

	fmt.Println("[INFO] Connecting to PostgreSQL...")
	store, err := storage.NewPostgresStore(cfg.DatabaseURL)
	if err != nil {
		fmt.Printf("[ERROR] Failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	// Test connection
	ctx := context.Background()
	if err := store.Ping(ctx); err != nil {
		fmt.Printf("[ERROR] Ping failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("[SUCCESS] Connected to PostgreSQL")

	// Test 1: Save a run
	fmt.Println("\n[TEST 1] Saving run...")
	run := &models.RunRecord{
		ClusterID:   "test-cluster",
		Namespace:   "microservice",
		Workload:    "fastapi-app",
		Command:     "verify",
		Verdict:     models.VerdictNeedsFixing,
		StepsPassed: 3,
		StepsFailed: 1,
		StartedAt:   time.Now().Add(-5 * time.Minute),
		FinishedAt:  time.Now(),
	}

	if err := store.SaveRun(ctx, run); err != nil {
		fmt.Printf("[ERROR] Save failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("[SUCCESS] Saved run: %s\n", run.ID)

	// Test 2: Retrieve the run
	fmt.Println("\n[TEST 2] Retrieving run...")
	retrieved, err := store.GetRun(ctx, run.ID)
	if err != nil {
		fmt.Printf("[ERROR] Get failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("[SUCCESS] Retrieved: %s (Workload: %s, Verdict: %s)\n",
		retrieved.ID, retrieved.Workload, retrieved.Verdict)

	// Test 3: List runs by namespace
	fmt.Println("\n[TEST 3] Listing runs...")
	runs, err := store.ListRuns(ctx, "microservice", 10)
	if err != nil {
		fmt.Printf("[ERROR] List failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("[SUCCESS] Found %d run(s) in microservice namespace\n", len(runs))
	for i, r := range runs {
		fmt.Printf("  %d. %s %s - %s\n", i+1, r.Command, r.Workload, r.Verdict)
	}

	// Test 4: Audit log
	fmt.Println("\n[TEST 4] Creating audit log entries...")
	entries := []*models.AuditEntry{
		{
			RunID:      run.ID,
			Action:     "scale deployment microservice/fastapi-app to 0",
			Status:     models.ActionAcknowledged,
			ExecutedBy: "test-user",
		},
		{
			RunID:      run.ID,
			Action:     "scale deployment microservice/fastapi-app to 2",
			Status:     models.ActionAcknowledged,
			ExecutedBy: "test-user",
		},
	}
	for _, entry := range entries {
		if err := store.LogAction(ctx, entry); err != nil {
			fmt.Printf("[ERROR] Audit log failed: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("[SUCCESS] %d audit log entries created\n", len(entries))

	// Test 5: Retrieve audit log
	fmt.Println("\n[TEST 5] Retrieving audit log...")
	auditLogs, err := store.GetAuditLog(ctx, run.ID)
	if err != nil {
		fmt.Printf("[ERROR] Get audit log failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("[SUCCESS] Found %d audit log entries\n", len(auditLogs))
	for i, log := range auditLogs {
		fmt.Printf("  %d. %s - %s by %s\n", i+1, log.Action, log.Status, log.ExecutedBy)
	}

	// Summary
	fmt.Println("\n" + "============================================================")
	fmt.Println("All tests passed!")
	fmt.Println("============================================================")
	fmt.Println("\nPostgreSQL store is working correctly!")
	fmt.Println("  - Runs: Save, Get, List [OK]")
	fmt.Println("  - Audit Log: Create, Retrieve [OK]")
}
