package main

import (
	"log"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"nexuslab/auth"
	"nexuslab/cache"
	"nexuslab/common"
	"nexuslab/config"
	"nexuslab/content"
	"nexuslab/database"
	"nexuslab/editor"
	"nexuslab/saved"
	"nexuslab/site"
	"nexuslab/storage"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	if cfg.SessionSecret == "" {
		log.Fatal("SESSION_SECRET environment variable not set")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET environment variable not set")
	}

	db, err := common.ConnectDb(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database: ", err)
	}

	if err := database.RunMigrations(db); err != nil {
		log.Fatal("Failed to run migrations: ", err)
	}

	blobs, err := storage.NewBlobStoreFromConfig(cfg)
	if err != nil {
		log.Fatal("Failed to configure storage: ", err)
	}

	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.Domain},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   false,
	})
	router.Use(sessions.Sessions("nexuslab_session", store))

	if fs, ok := blobs.(*storage.FilesystemStore); ok {
		router.Static("/uploads", fs.Root())
	}

	sessionStore := auth.NewSessionStore()
	sessionStore.Subscribe(func(event auth.Event, p *auth.Principal) {
		log.Printf("auth: %s user=%s", event, p.User.ID)
	})

	authModule := auth.NewAuthModule(db, sessionStore, cfg.JWTSecret)
	authModule.RegisterRoutes(router)

	renderer := content.NewRenderer(cache.NewStore(cfg.CacheDir), cfg.CacheMaxAge)

	contentModule := content.NewContentModule(db, blobs, authModule, renderer)
	contentModule.RegisterRoutes(router)

	savedModule := saved.NewSavedModule(db, authModule)
	savedModule.RegisterRoutes(router)

	editorModule := editor.NewEditorModule(db, authModule)
	editorModule.RegisterRoutes(router)

	siteModule := site.NewSiteModule(db, cfg.Domain)
	siteModule.RegisterRoutes(router)

	log.Printf("Starting server on port %s...", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server: ", err)
	}
}
