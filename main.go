package main

import (
	"log"
	"time"

	"fileshare/auth"
	"fileshare/config"
	"fileshare/db"
	"fileshare/handlers"
	"fileshare/handoff"
	"fileshare/models"
	"fileshare/notifier"
	"fileshare/session"
	"fileshare/storage"
	"fileshare/upload"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	_ "github.com/joho/godotenv/autoload"
)

func main() {
	if config.TOKEN_SECRET == "" {
		log.Fatal("TOKEN_SECRET must be configured")
	}

	db.Init()
	models.Init()

	store := newSessionStore()
	chunks := storage.NewDiskStore(config.TMP_DIR)
	manager := upload.NewManager(store, chunks, upload.Config{
		ChunkSize:    config.CHUNK_SIZE,
		MaxSize:      config.MAX_UPLOAD_SIZE,
		TTL:          time.Duration(config.SESSION_TTL) * time.Second,
		Grace:        time.Duration(config.EXPIRY_GRACE) * time.Second,
		AllowedTypes: config.AllowedTypes(),
	})

	hub := notifier.NewHub(
		time.Duration(config.HEARTBEAT_INTERVAL)*time.Second,
		time.Duration(config.PROGRESS_MIN_INTERVAL_MS)*time.Millisecond,
	)
	hub.StartHeartbeat()

	sweeper := upload.NewSweeper(manager, time.Duration(config.SWEEP_INTERVAL)*time.Second, func(sess *upload.Session) {
		if !sess.Complete() {
			hub.BroadcastError(sess.UploadedBy, sess.UploadID, "upload session expired")
		}
	})
	sweeper.Start()

	if !config.DEBUG_MODE {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	_ = router.SetTrustedProxies([]string{})
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "PUT", "POST", "DELETE"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           30 * 24 * time.Hour,
	}))
	if !config.DEBUG_MODE {
		router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/upload/chunk"})))
	}

	authRouter := &auth.Router{
		Base:      router,
		Verifier:  auth.NewTokenVerifier(config.TOKEN_SECRET),
		Directory: newDirectory(),
	}

	uploadHandler := &handlers.UploadHandler{
		Manager: manager,
		Hub:     hub,
		Handoff: newHandoff(),
	}
	authRouter.POST("/upload/init", uploadHandler.Init)
	authRouter.PUT("/upload/chunk", uploadHandler.Chunk)
	authRouter.GET("/upload/progress", uploadHandler.Progress)
	authRouter.POST("/upload/cancel", uploadHandler.Cancel)

	wsHandler := &handlers.WebSocketHandler{Router: authRouter, Hub: hub}
	router.GET("/ws", wsHandler.Serve)

	err := router.Run(config.BIND_ADDRESS)
	log.Fatalf("Server stopped: %v", err)
}

func newSessionStore() session.Store {
	if config.REDIS_ADDR == "" {
		log.Print("REDIS_ADDR not set, using in-memory session store (single instance only)")
		return session.NewMemoryStore()
	}
	store, err := session.NewRedisStore(config.REDIS_ADDR, config.REDIS_PASSWORD, config.REDIS_DB)
	if err != nil {
		log.Fatalf("could not connect to Redis: %v", err)
	}
	return store
}

func newDirectory() models.UserDirectory {
	if db.Instance == nil {
		log.Print("no database configured, every verified token subject is admitted")
		return models.AllowAllDirectory{}
	}
	return models.DBDirectory{}
}

func newHandoff() handoff.Handoff {
	if config.S3_BUCKET != "" {
		return handoff.NewS3Handoff(handoff.S3Config{
			Bucket:    config.S3_BUCKET,
			Region:    config.S3_REGION,
			Endpoint:  config.S3_ENDPOINT,
			AccessKey: config.S3_ACCESS_KEY,
			SecretKey: config.S3_SECRET_KEY,
		})
	}
	log.Printf("S3_BUCKET not set, finished files go to %s", config.HANDOFF_DIR)
	return handoff.NewDiskHandoff(config.HANDOFF_DIR)
}
