package app

import (
	"context"
	"fmt"

	"storefront/internal/config"
	"storefront/internal/models"
	"storefront/internal/services"

	"github.com/rs/zerolog"
)

// bootstrap seeds the demo catalog and the admin account when configured.
func bootstrap(ctx context.Context, cfg *config.Config, log zerolog.Logger, products *services.ProductService, auth *services.AuthService) error {
	if cfg.SeedProducts {
		seeded, err := products.SeedProducts(ctx, demoCatalog())
		if err != nil {
			return fmt.Errorf("failed to seed products: %w", err)
		}
		log.Info().Int("products", seeded).Msg("demo catalog seeded")
	}

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		admin, err := auth.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword, cfg.AdminUsername)
		if err != nil {
			return fmt.Errorf("failed to ensure admin account: %w", err)
		}
		log.Info().Str("user_id", admin.ID).Msg("admin account ready")
	}
	return nil
}

// demoCatalog returns the products used to populate an empty store.
// Prices are in paise.
func demoCatalog() []models.Product {
	return []models.Product{
		{Name: "AirPods Pro (2nd Gen)", Image: "images/electronics_1.jpg", Category: "Electronics", Description: "Active noise cancellation and adaptive transparency.", Price: 2499900, CountInStock: 10, Rating: 4.8, NumReviews: 89},
		{Name: "4K Ultra HD 55-inch Smart TV", Image: "images/electronics_2.jpg", Category: "Electronics", Description: "Vivid picture quality with smart streaming built in.", Price: 4599900, CountInStock: 5, Rating: 4.6, NumReviews: 122},
		{Name: "Wireless Mechanical Keyboard", Image: "images/electronics_3.jpg", Category: "Electronics", Description: "Tactile switches for a satisfying typing experience.", Price: 799900, CountInStock: 10, Rating: 4.9, NumReviews: 75},
		{Name: "Wireless Gaming Mouse", Image: "images/electronics_6.jpg", Category: "Electronics", Description: "High precision mouse with programmable buttons.", Price: 599900, CountInStock: 10, Rating: 4.6, NumReviews: 85},
		{Name: "Classic Denim Jeans (Slim Fit)", Image: "images/apparel_3.jpg", Category: "Apparel", Description: "Stretch denim in a slim cut.", Price: 299900, CountInStock: 10, Rating: 4.4, NumReviews: 51},
		{Name: "Unisex Baseball Cap", Image: "images/apparel_8.jpg", Category: "Apparel", Description: "Adjustable cotton cap.", Price: 149900, CountInStock: 10, Rating: 4.2, NumReviews: 33},
		{Name: "Aroma Diffuser and Essential Oil Kit", Image: "images/home_5.jpg", Category: "Home & Kitchen", Description: "Ultrasonic diffuser with six oils.", Price: 299900, CountInStock: 10, Rating: 4.5, NumReviews: 40},
		{Name: "Atomic Habits", Image: "images/books_2.jpg", Category: "Books", Description: "Small changes, remarkable results.", Price: 34900, CountInStock: 10, Rating: 4.9, NumReviews: 310},
		{Name: "The Psychology of Money", Image: "images/books_7.jpg", Category: "Books", Description: "Timeless lessons on wealth and happiness.", Price: 34900, CountInStock: 10, Rating: 4.8, NumReviews: 205},
		{Name: "24oz Insulated Water Bottle", Image: "images/sports_4.jpg", Category: "Sports & Outdoors", Description: "Keeps drinks cold for 24 hours.", Price: 249900, CountInStock: 10, Rating: 4.7, NumReviews: 64},
	}
}
