package models

import (
	"gorm.io/gorm"
)

type Property struct {
	gorm.Model
	ManagerID      uint   `json:"managerID" gorm:"index"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	AddressLine1   string `json:"addressLine1"`
	AddressLine2   string `json:"addressLine2"`
	City           string `json:"city"`
	County         string `json:"county"`
	Country        string `json:"country" gorm:"default:'Kenya'"`
	Currency       string `json:"currency" gorm:"default:'KES'"`
	TotalUnits     int    `json:"totalUnits"`
	AvailableUnits int    `json:"availableUnits"` // maintained by the unit ledger, never set by handlers
	Units          []Unit `json:"units" gorm:"foreignKey:PropertyID"`
}
