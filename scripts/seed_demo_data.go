package main

import (
	"fmt"
	"log"

	"github.com/Geezkick/Manyani-Rental-System-sub000/models"
	"github.com/Geezkick/Manyani-Rental-System-sub000/storage"
)

// Seeds a demo property with a handful of units for local development.
func main() {
	db := storage.InitializeDB()

	property := models.Property{
		ManagerID:    1,
		Name:         "Manyani Heights",
		AddressLine1: "Manyani Road",
		City:         "Nairobi",
		County:       "Nairobi",
	}
	if err := db.Where("name = ?", property.Name).FirstOrCreate(&property).Error; err != nil {
		log.Fatalf("seed property: %v", err)
	}

	units := []models.Unit{
		{PropertyID: property.ID, UnitNumber: "A1", Floor: 1, SizeSqm: 45, MonthlyRent: 25000, Deposit: 25000},
		{PropertyID: property.ID, UnitNumber: "A2", Floor: 1, SizeSqm: 45, MonthlyRent: 25000, Deposit: 25000},
		{PropertyID: property.ID, UnitNumber: "B1", Floor: 2, SizeSqm: 62, MonthlyRent: 35000, Deposit: 35000},
		{PropertyID: property.ID, UnitNumber: "B2", Floor: 2, SizeSqm: 62, MonthlyRent: 35000, Deposit: 35000},
		{PropertyID: property.ID, UnitNumber: "P1", Floor: 3, SizeSqm: 110, MonthlyRent: 65000, Deposit: 65000},
	}
	for _, u := range units {
		unit := u
		if err := db.Where("property_id = ? AND unit_number = ?", unit.PropertyID, unit.UnitNumber).FirstOrCreate(&unit).Error; err != nil {
			log.Fatalf("seed unit %s: %v", u.UnitNumber, err)
		}
	}

	var available int64
	db.Model(&models.Unit{}).Where("property_id = ? AND status = ?", property.ID, models.UnitStatusAvailable).Count(&available)
	db.Model(&property).Updates(map[string]interface{}{"total_units": len(units), "available_units": available})

	fmt.Println("Demo data seeded successfully!")
}
