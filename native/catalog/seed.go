package catalog

// SeedProducts returns the demo menu.
func SeedProducts() []Product {
	return []Product{
		{ID: "1", Name: "Americano Coffee", SKU: "BEV-001", PriceUSD: 1.68, Stock: UnlimitedStock, Category: CategoryBeverage, Image: "AM"},
		{ID: "2", Name: "Special Fried Rice", SKU: "FOD-001", PriceUSD: 2.34, Stock: 50, Category: CategoryFood, Image: "FR"},
		{ID: "3", Name: "Butter Croissant", SKU: "FOD-002", PriceUSD: 1.2, Stock: 25, Category: CategoryFood, Image: "CR"},
		{ID: "4", Name: "Matcha Latte", SKU: "BEV-002", PriceUSD: 2.13, Stock: UnlimitedStock, Category: CategoryBeverage, Image: "ML"},
		{ID: "5", Name: "Classic Burger", SKU: "FOD-003", PriceUSD: 2.79, Stock: 30, Category: CategoryFood, Image: "BG"},
		{ID: "6", Name: "Fresh Orange Juice", SKU: "BEV-003", PriceUSD: 1.32, Stock: UnlimitedStock, Category: CategoryBeverage, Image: "OJ"},
		{ID: "7", Name: "Carbonara Pasta", SKU: "FOD-004", PriceUSD: 3.21, Stock: 20, Category: CategoryFood, Image: "PS"},
		{ID: "8", Name: "Cheesecake Slice", SKU: "FOD-005", PriceUSD: 1.86, Stock: 15, Category: CategoryFood, Image: "CK"},
	}
}
