package main

import (
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"

	"github.com/quartermaster/backend/internal/config"
	"github.com/quartermaster/backend/internal/database"
	"github.com/quartermaster/backend/internal/models"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	fmt.Println("✓ Database migrated successfully")

	// Seed Areas
	areas := []models.Area{
		{UUID: uuid.NewString(), Code: "HQ", Name: "Headquarters", Description: "Main office", Version: 1},
		{UUID: uuid.NewString(), Code: "WH-N", Name: "North Warehouse", Description: "Northern distribution hub", Version: 1},
		{UUID: uuid.NewString(), Code: "WH-S", Name: "South Warehouse", Description: "Southern distribution hub", Version: 1},
	}

	for _, area := range areas {
		result := db.Where("code = ?", area.Code).FirstOrCreate(&area)
		if result.Error != nil {
			log.Printf("Failed to seed area %s: %v", area.Code, result.Error)
		} else if result.RowsAffected > 0 {
			fmt.Printf("✓ Created area: %s (%s)\n", area.Name, area.Code)
		} else {
			fmt.Printf("  Area already exists: %s\n", area.Code)
		}
	}

	// Seed Addresses
	addresses := []models.Address{
		{UUID: uuid.NewString(), Label: "HQ Campus", Street: "1 Provision Way", City: "Springfield", PostalCode: "10001", Version: 1},
		{UUID: uuid.NewString(), Label: "North Depot", Street: "42 Freight Rd", City: "Northfield", PostalCode: "20002", Version: 1},
	}

	for _, addr := range addresses {
		result := db.Where("label = ?", addr.Label).FirstOrCreate(&addr)
		if result.Error != nil {
			log.Printf("Failed to seed address %s: %v", addr.Label, result.Error)
		} else if result.RowsAffected > 0 {
			fmt.Printf("✓ Created address: %s\n", addr.Label)
		} else {
			fmt.Printf("  Address already exists: %s\n", addr.Label)
		}
	}

	// Seed Devices
	devices := []models.Device{
		{UUID: uuid.NewString(), AssetTag: "LT-0001", Model: "ThinkPad T14", SerialNumber: "SN-TP-0001", Status: "in_stock", Version: 1},
		{UUID: uuid.NewString(), AssetTag: "LT-0002", Model: "ThinkPad T14", SerialNumber: "SN-TP-0002", Status: "in_stock", Version: 1},
		{UUID: uuid.NewString(), AssetTag: "PH-0001", Model: "Pixel 8", SerialNumber: "SN-PX-0001", Status: "in_stock", Version: 1},
	}

	for _, device := range devices {
		result := db.Where("asset_tag = ?", device.AssetTag).FirstOrCreate(&device)
		if result.Error != nil {
			log.Printf("Failed to seed device %s: %v", device.AssetTag, result.Error)
		} else if result.RowsAffected > 0 {
			fmt.Printf("✓ Created device: %s (%s)\n", device.AssetTag, device.Model)
		} else {
			fmt.Printf("  Device already exists: %s\n", device.AssetTag)
		}
	}

	// Seed default admin user
	defaultAdminEmail := os.Getenv("QM_DEFAULT_ADMIN_EMAIL")
	if defaultAdminEmail == "" {
		defaultAdminEmail = "admin@localhost"
	}
	defaultAdminPassword := os.Getenv("QM_DEFAULT_ADMIN_PASSWORD")
	forceAdmin := os.Getenv("QM_FORCE_DEFAULT_ADMIN") == "1"

	admin := models.AdminUser{
		UUID:    uuid.NewString(),
		Email:   defaultAdminEmail,
		Name:    "Administrator",
		Code:    "ADMIN",
		Role:    "admin",
		Enabled: true,
	}

	// If a default password provided, use SetPassword to generate a proper bcrypt hash
	if defaultAdminPassword != "" {
		if err := admin.SetPassword(defaultAdminPassword); err != nil {
			log.Printf("Failed to hash default admin password: %v", err)
		}
	} else {
		// Placeholder hash that no password verifies against
		admin.PasswordHash = "$2a$10$example_hashed_password"
	}

	var existing models.AdminUser
	if err := db.Where("email = ?", admin.Email).First(&existing).Error; err != nil {
		result := db.Create(&admin)
		if result.Error != nil {
			log.Printf("Failed to seed admin: %v", result.Error)
		} else if result.RowsAffected > 0 {
			fmt.Printf("✓ Created default admin: %s\n", admin.Email)
		}
	} else if forceAdmin && defaultAdminPassword != "" {
		if err := existing.SetPassword(defaultAdminPassword); err == nil {
			existing.LockedUntil = nil
			existing.FailedLoginAttempts = 0
			db.Save(&existing)
			fmt.Printf("✓ Updated existing admin password for: %s\n", existing.Email)
		} else {
			log.Printf("Failed to update existing admin password: %v", err)
		}
	} else {
		fmt.Printf("  Admin already exists: %s\n", existing.Email)
	}

	fmt.Println("\n✓ Database seeding completed successfully!")
}
