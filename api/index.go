package handler

import (
	"context"
	"log"
	"net/http"
	"sync"

	config "interview-analyzer-api/configs"
	"interview-analyzer-api/pkg/server"

	"github.com/gin-gonic/gin"
)

var (
	app  *gin.Engine
	once sync.Once
)

// setupApp はGinアプリケーションを初期化します。
// サーバーレス環境では、リクエストごとに初期化が走らないようsync.Onceで一度だけ実行します。
func setupApp() *gin.Engine {
	once.Do(func() {
		// .envファイルはVercelの環境変数設定から読み込まれるため、ここではgodotenvを呼び出しません。
		cfg := config.LoadConfig()

		prompts, err := config.LoadPrompts(cfg.PromptsPath)
		if err != nil {
			log.Printf("[setupApp] プロンプトの読み込みに失敗、埋め込みのプロンプトを使用します: %v", err)
			prompts, _ = config.LoadPrompts("")
		}

		// 関数インスタンスが破棄されるまで接続は開いたまま
		app = server.NewRouter(server.Build(context.Background(), cfg, prompts))
		log.Printf("[setupApp] Gin application initialized")
	})
	return app
}

// Handler はVercelからのすべてのリクエストを処理するエントリーポイントです。
func Handler(w http.ResponseWriter, r *http.Request) {
	setupApp().ServeHTTP(w, r)
}
