package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/empathyai/companion/internal/config"
	"github.com/empathyai/companion/internal/handler"
	transcribeHandler "github.com/empathyai/companion/internal/handler/transcribe"
	"github.com/empathyai/companion/internal/service/ai"
	"github.com/empathyai/companion/internal/service/auth"
	"github.com/empathyai/companion/internal/service/chat"
	"github.com/empathyai/companion/internal/service/speech"
	"github.com/empathyai/companion/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		log.Fatalf("failed to open store at %s: %v", cfg.Store.Path, err)
	}
	defer db.Close()

	users := store.NewUserRepository(db)
	chats := store.NewChatRepository(db)
	feedback := store.NewFeedbackRepository(db)

	authService := auth.NewService(users, cfg.Auth)
	chatService := chat.NewService(chats)

	// AI 服务不可用时回退到内置的应答生成器。
	aiService, err := ai.NewService(ctx, cfg.AI)
	if err != nil {
		log.Fatalf("failed to initialize AI service: %v", err)
	}
	if aiService.ModelEnabled() {
		log.Println("AI service initialized successfully")
	} else {
		log.Println("Ark 凭证未配置，使用内置应答生成器")
	}

	var transcriber transcribeHandler.Transcriber
	if recognizer := speech.NewRecognizer(cfg.Recognizer); recognizer != nil {
		transcriber = recognizer
		log.Println("Transcription service initialized successfully")
	} else {
		log.Println("语音识别服务未配置，跳过转写功能初始化")
	}

	router := handler.NewRouter(authService, chatService, aiService, feedback, transcriber)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("EmpathyAI backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
