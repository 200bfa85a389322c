package main

import (
	"context"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/theravid/theravid/config"
	"github.com/theravid/theravid/internal/api/handlers"
	"github.com/theravid/theravid/internal/api/middleware"
	"github.com/theravid/theravid/internal/api/routes"
	"github.com/theravid/theravid/internal/cache"
	"github.com/theravid/theravid/internal/logger"
	"github.com/theravid/theravid/internal/models"
	"github.com/theravid/theravid/internal/providers/emotion"
	"github.com/theravid/theravid/internal/providers/llm"
	"github.com/theravid/theravid/internal/providers/stt"
	mongorepo "github.com/theravid/theravid/internal/repositories/mongo"
	pgrepo "github.com/theravid/theravid/internal/repositories/postgres"
	"github.com/theravid/theravid/internal/services"
	"github.com/theravid/theravid/internal/storage"
	"github.com/theravid/theravid/internal/workers"
)

func main() {
	_ = godotenv.Load()

	log := logger.New()
	ctx := context.Background()

	if err := config.InitMongo(); err != nil {
		log.WithError(err).Fatal("MongoDB init failed")
	}
	log.Info("MongoDB connected")

	if err := config.InitPostgres(); err != nil {
		log.WithError(err).Fatal("PostgreSQL init failed")
	}
	log.Info("PostgreSQL connected")

	if err := config.InitRedis(); err != nil {
		log.WithError(err).Fatal("Redis init failed")
	}
	log.Info("Redis connected")

	if err := config.PostgresDB.AutoMigrate(
		&models.User{},
		&models.Profile{},
		&models.Upload{},
		&models.ConversationLog{},
	); err != nil {
		log.WithError(err).Fatal("Postgres migration failed")
	}
	if err := config.EnsureMongoIndexes(); err != nil {
		log.WithError(err).Fatal("Mongo index setup failed")
	}

	mongoDB := config.MongoClient.Database(config.MongoDBName())

	// repositories
	users := pgrepo.NewUserRepo(config.PostgresDB)
	profiles := pgrepo.NewProfileRepo(config.PostgresDB)
	uploads := pgrepo.NewUploadRepo(config.PostgresDB)
	convos := pgrepo.NewConversationRepo(config.PostgresDB)
	chats := mongorepo.NewChatRepo(mongoDB)
	clips := mongorepo.NewClipRepo(mongoDB)

	// storage
	var uploader storage.Uploader
	if bucket := os.Getenv("GCS_BUCKET"); bucket != "" {
		gcs, err := storage.NewGCSUploader(ctx, bucket)
		if err != nil {
			log.WithError(err).Fatal("GCS init failed")
		}
		defer gcs.Close()
		uploader = gcs
	}

	uploadDir := ""
	if uploader == nil {
		uploadDir = os.Getenv("UPLOAD_DIR")
		if uploadDir == "" {
			uploadDir = "uploads"
		}
		local, err := storage.NewLocalStore(uploadDir)
		if err != nil {
			log.WithError(err).Fatal("upload dir init failed")
		}
		uploader = local
		log.Info("using local upload storage")
	}

	// providers, mocked when no Google project is configured
	var (
		sttP stt.Provider
		emoP emotion.Provider
		llmP llm.Provider
	)
	project := os.Getenv("VERTEX_PROJECT_ID")
	location := os.Getenv("VERTEX_LOCATION")
	if project != "" {
		gs, err := stt.NewGoogleSpeech(ctx)
		if err != nil {
			log.WithError(err).Fatal("Google Speech init failed")
		}
		defer gs.Close()
		sttP = gs

		vg, err := llm.NewVertexGemini(ctx, project, location, os.Getenv("VERTEX_MODEL"))
		if err != nil {
			log.WithError(err).Fatal("Vertex Gemini init failed")
		}
		defer vg.Close()
		llmP = vg

		vv, err := emotion.NewVertexVision(ctx, project, location, os.Getenv("VERTEX_VISION_MODEL"))
		if err != nil {
			log.WithError(err).Fatal("Vertex vision init failed")
		}
		defer vv.Close()
		emoP = vv
	} else {
		sttP = stt.NewMock()
		llmP = llm.NewMock()
		emoP = emotion.NewMock()
		log.Warn("no VERTEX_PROJECT_ID set, using mock providers")
	}

	// services
	rcache := cache.NewRedisCache(config.RedisClient)
	authSvc := services.NewAuthService(users, os.Getenv("JWT_SECRET"))
	profileSvc := services.NewProfileService(users, profiles, rcache)
	convoSvc := services.NewConversationService(convos)
	checkinSvc := services.NewCheckinService(uploads, uploader, sttP, emoP, llmP, log)
	chatSvc := services.NewChatService(chats, convoSvc, sttP, llmP, log)
	clipSvc := services.NewClipService(clips, 0)
	uploadSvc := services.NewUploadService(uploads, uploader)

	// background clip pipeline
	pool := &workers.VideoWorkerPool{
		Redis:    config.RedisClient,
		Clips:    clipSvc,
		STT:      sttP,
		Emotions: emoP,
		LLM:      llmP,
		Logger:   log,
	}
	if err := pool.Start(ctx); err != nil {
		log.WithError(err).Fatal("worker pool start failed")
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))

	if uploadDir != "" {
		r.Static("/uploads", uploadDir)
	}

	routes.RegisterRoutes(r, routes.Deps{
		Auth:         handlers.NewAuthHandler(authSvc),
		Record:       handlers.NewRecordHandler(checkinSvc),
		Chat:         handlers.NewChatHandler(chatSvc),
		Profile:      handlers.NewProfileHandler(profileSvc),
		Upload:       handlers.NewUploadHandler(uploadSvc),
		Conversation: handlers.NewConversationHandler(convoSvc),
		WS:           handlers.NewWSHandler(chats, clipSvc, config.RedisClient),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := r.Run(":" + port); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
