package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/mantishub/Moderate/internal/config"
	"github.com/mantishub/Moderate/internal/host"
	"github.com/mantishub/Moderate/internal/moderate"
	"github.com/mantishub/Moderate/internal/notify"
	"github.com/mantishub/Moderate/internal/storage"
)

func main() {
	_ = godotenv.Load()

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	store := storage.NewStorageService(db, nil) // No redis needed for admin CLI
	hostSvc := host.NewService(db)
	engine := moderate.NewService(store, hostSvc, hostSvc, hostSvc, notify.LogNotifier{}, config.Load())

	if len(os.Args) < 2 {
		usage()
	}

	command := os.Args[1]

	switch command {
	case "approve":
		queueID, moderatorID := queueAndModerator("approve")
		resultID, err := engine.Approve(queueID, moderatorID)
		if err != nil {
			log.Fatalf("Error approving entry: %v", err)
		}
		fmt.Printf("Queue entry %d approved, created content %d.\n", queueID, resultID)

	case "reject":
		queueID, moderatorID := queueAndModerator("reject")
		reason := ""
		if len(os.Args) > 4 {
			reason = os.Args[4]
		}
		if err := engine.Reject(queueID, moderatorID, reason); err != nil {
			log.Fatalf("Error rejecting entry: %v", err)
		}
		fmt.Printf("Queue entry %d rejected.\n", queueID)

	case "spam":
		queueID, moderatorID := queueAndModerator("spam")
		count, err := engine.MarkSpam(queueID, moderatorID)
		if err != nil {
			log.Fatalf("Error marking spam: %v", err)
		}
		fmt.Printf("Marked %d entries as spam; reporter account disabled.\n", count)

	case "delete":
		queueID := argUint(2, "Usage: admin delete <queue_id>")
		if err := engine.Delete(queueID); err != nil {
			log.Fatalf("Error deleting entry: %v", err)
		}
		fmt.Printf("Queue entry %d deleted.\n", queueID)

	case "cleanup":
		removed, err := engine.Cleanup()
		if err != nil {
			log.Fatalf("Error running cleanup: %v", err)
		}
		fmt.Printf("Cleanup removed %d entries.\n", removed)

	case "purge-project":
		projectID := argUint(2, "Usage: admin purge-project <project_id>")
		if err := engine.DeleteByProject(projectID); err != nil {
			log.Fatalf("Error purging project entries: %v", err)
		}
		fmt.Printf("Purged all queue entries for project %d.\n", projectID)

	case "purge-user":
		userID := argUint(2, "Usage: admin purge-user <user_id>")
		if err := engine.DeleteByUser(userID); err != nil {
			log.Fatalf("Error purging user entries: %v", err)
		}
		fmt.Printf("Purged all queue entries reported by user %d.\n", userID)

	default:
		usage()
	}
}

func usage() {
	fmt.Println("Usage: admin <approve|reject|spam|delete|cleanup|purge-project|purge-user> [args]")
	os.Exit(1)
}

func queueAndModerator(command string) (uint, uint) {
	if len(os.Args) < 4 {
		fmt.Printf("Usage: admin %s <queue_id> <moderator_id>\n", command)
		os.Exit(1)
	}
	return parseUint(os.Args[2]), parseUint(os.Args[3])
}

func argUint(index int, usageLine string) uint {
	if len(os.Args) <= index {
		fmt.Println(usageLine)
		os.Exit(1)
	}
	return parseUint(os.Args[index])
}

func parseUint(raw string) uint {
	value, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		fmt.Printf("Invalid id %q. Please provide an integer.\n", raw)
		os.Exit(1)
	}
	return uint(value)
}
