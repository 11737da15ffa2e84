package enums

import "strings"

// ProductCategory groups listings in the catalog.
type ProductCategory string

const (
	ProductCategoryVegetables ProductCategory = "vegetables"
	ProductCategoryFruits     ProductCategory = "fruits"
	ProductCategoryDairy      ProductCategory = "dairy"
	ProductCategoryPoultry    ProductCategory = "poultry"
	ProductCategoryGrains     ProductCategory = "grains"
)

// ProductCategoryAll in a list filter means every category.
const ProductCategoryAll = "all"

var productCategories = set[ProductCategory]{
	ProductCategoryVegetables,
	ProductCategoryFruits,
	ProductCategoryDairy,
	ProductCategoryPoultry,
	ProductCategoryGrains,
}

func (c ProductCategory) String() string { return string(c) }

func (c ProductCategory) IsValid() bool { return productCategories.has(c) }

// ParseProductCategory is case-insensitive.
func ParseProductCategory(value string) (ProductCategory, error) {
	return productCategories.parse("product category", value)
}

// ParseCategoryFilter returns nil for "" and "all", meaning no filter.
func ParseCategoryFilter(value string) (*ProductCategory, error) {
	if v := strings.ToLower(strings.TrimSpace(value)); v == "" || v == ProductCategoryAll {
		return nil, nil
	}
	category, err := ParseProductCategory(value)
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// ProductUnit is the selling unit shown next to a price.
type ProductUnit string

const (
	ProductUnitKilogram ProductUnit = "kg"
	ProductUnitPounds   ProductUnit = "lbs"
	ProductUnitDozen    ProductUnit = "dozen"
	ProductUnitLiter    ProductUnit = "liter"
	ProductUnitPiece    ProductUnit = "piece"
)

var productUnits = set[ProductUnit]{
	ProductUnitKilogram,
	ProductUnitPounds,
	ProductUnitDozen,
	ProductUnitLiter,
	ProductUnitPiece,
}

func (u ProductUnit) String() string { return string(u) }

func (u ProductUnit) IsValid() bool { return productUnits.has(u) }

// ParseProductUnit is case-insensitive.
func ParseProductUnit(value string) (ProductUnit, error) {
	return productUnits.parse("product unit", value)
}
