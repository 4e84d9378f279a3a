package services

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"strings"
	"time"

	"interview-analyzer-api/pkg/dynamics"
	"interview-analyzer-api/pkg/models"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

const (
	analysisPointType = "interview_analysis"
	// text-embedding-3-smallの次元数
	defaultVectorSize = uint64(1536)
)

// Embedder テキストをベクトル化する
type Embedder interface {
	CreateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// VectorStoreService は分析結果の要約をQdrantに保存し、類似した過去の面接を検索します
type VectorStoreService struct {
	qdrantClient            qdrant.PointsClient
	qdrantCollectionsClient qdrant.CollectionsClient
	embedder                Embedder
	collectionName          string
}

// DialQdrant APIキーの有無で、Cloud接続(TLS+APIキー)とローカル接続(非セキュア)を切り替える
func DialQdrant(qdrantURL, qdrantAPIKey string) (*grpc.ClientConn, error) {
	var dialOpts []grpc.DialOption

	if qdrantAPIKey != "" {
		log.Println("[Qdrant] Cloud (TLS) への接続を準備します...")
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{})))

		authInterceptor := func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
			ctx = metadata.AppendToOutgoingContext(ctx, "api-key", qdrantAPIKey)
			return invoker(ctx, method, req, reply, cc, opts...)
		}
		dialOpts = append(dialOpts, grpc.WithUnaryInterceptor(authInterceptor))
	} else {
		log.Println("[Qdrant] ローカル (非TLS) への接続を準備します...")
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	conn, err := grpc.NewClient(qdrantURL, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("QdrantへのgRPCクライアント作成に失敗: %w", err)
	}
	return conn, nil
}

// NewVectorStoreService は接続済みのgRPCコネクションからVectorStoreServiceを作り、コレクションを用意します
func NewVectorStoreService(ctx context.Context, conn grpc.ClientConnInterface, embedder Embedder, collectionName string) (*VectorStoreService, error) {
	s := newVectorStore(qdrant.NewPointsClient(conn), qdrant.NewCollectionsClient(conn), embedder, collectionName)
	if err := s.ensureCollection(ctx, defaultVectorSize, 10, 2*time.Second); err != nil {
		return nil, err
	}
	return s, nil
}

func newVectorStore(points qdrant.PointsClient, collections qdrant.CollectionsClient, embedder Embedder, collectionName string) *VectorStoreService {
	return &VectorStoreService{
		qdrantClient:            points,
		qdrantCollectionsClient: collections,
		embedder:                embedder,
		collectionName:          collectionName,
	}
}

// ensureCollection Qdrantサーバーが起動するまでリトライしながらコレクションの存在を確認し、なければ作成する
func (s *VectorStoreService) ensureCollection(ctx context.Context, vectorSize uint64, maxRetries int, retryInterval time.Duration) error {
	var collectionExists bool
	var listErr error

	for i := 0; i < maxRetries; i++ {
		listCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		res, err := s.qdrantCollectionsClient.List(listCtx, &qdrant.ListCollectionsRequest{})
		cancel()
		listErr = err
		if err == nil {
			for _, collection := range res.GetCollections() {
				if collection.GetName() == s.collectionName {
					collectionExists = true
					break
				}
			}
			break
		}
		log.Printf("[Qdrant] サーバーの準備確認に失敗しました (試行 %d/%d)。%v後に再試行します...", i+1, maxRetries, retryInterval)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	if listErr != nil {
		return fmt.Errorf("Qdrantのコレクションリスト取得に失敗しました（リトライ上限到達）: %w", listErr)
	}
	if collectionExists {
		log.Printf("[Qdrant] コレクション '%s' は既に存在します。", s.collectionName)
		return nil
	}

	createCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err := s.qdrantCollectionsClient.Create(createCtx, &qdrant.CreateCollection{
		CollectionName: s.collectionName,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     vectorSize,
					Distance: qdrant.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("Qdrantのコレクション作成に失敗しました: %w", err)
	}
	log.Printf("[Qdrant] コレクション '%s' を作成しました。", s.collectionName)
	return nil
}

// ArchiveAnalysis は分析結果の要約をベクトル化し、メタデータと共にQdrantに保存します
func (s *VectorStoreService) ArchiveAnalysis(ctx context.Context, a *dynamics.FinalAnalysis) error {
	summary := analysisSummaryText(a)
	vector, err := s.embedder.CreateEmbedding(ctx, summary)
	if err != nil {
		return fmt.Errorf("分析要約のベクトル化に失敗: %w", err)
	}

	waitUpsert := true
	_, err = s.qdrantClient.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collectionName,
		Wait:           &waitUpsert,
		Points: []*qdrant.PointStruct{
			{
				Id: &qdrant.PointId{
					PointIdOptions: &qdrant.PointId_Uuid{Uuid: pointID(a.AnalysisID)},
				},
				Vectors: &qdrant.Vectors{
					VectorsOptions: &qdrant.Vectors_Vector{
						Vector: &qdrant.Vector{Data: vector},
					},
				},
				Payload: toPayload(map[string]interface{}{
					"type":           analysisPointType,
					"analysis_id":    a.AnalysisID,
					"candidate_id":   a.CandidateID,
					"candidate_name": a.CandidateName,
					"total_score":    a.TotalScore,
					"weighted_score": a.WeightedScore,
					"recommendation": a.Recommendation,
					"degraded":       a.Quality.Degraded(),
					"timestamp":      a.AnalysisTimestamp.Format(time.RFC3339),
					"text":           summary,
				}),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("Qdrantへのベクトル保存に失敗: %w", err)
	}

	log.Printf("[Qdrant] 分析 '%s' をアーカイブしました。", a.AnalysisID)
	return nil
}

// DeleteArchivedAnalyses はアーカイブ済みの分析ポイントをすべて削除します
func (s *VectorStoreService) DeleteArchivedAnalyses(ctx context.Context) error {
	wait := true
	_, err := s.qdrantClient.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collectionName,
		Wait:           &wait,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: &qdrant.Filter{
					Must: []*qdrant.Condition{keywordCondition("type", analysisPointType)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("Qdrantからの分析削除に失敗: %w", err)
	}
	log.Printf("[Qdrant] コレクション '%s' のアーカイブ済み分析を削除しました。", s.collectionName)
	return nil
}

// SearchSimilar はクエリに類似した過去の分析を検索します。excludeCandidateID の分析は除外します。
func (s *VectorStoreService) SearchSimilar(ctx context.Context, query string, limit uint64, excludeCandidateID string) ([]models.SimilarAnalysis, error) {
	queryVector, err := s.embedder.CreateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("クエリテキストのベクトル化に失敗: %w", err)
	}

	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{keywordCondition("type", analysisPointType)},
	}
	if excludeCandidateID != "" {
		filter.MustNot = []*qdrant.Condition{keywordCondition("candidate_id", excludeCandidateID)}
	}

	searchResult, err := s.qdrantClient.Search(ctx, &qdrant.SearchPoints{
		CollectionName: s.collectionName,
		Vector:         queryVector,
		Limit:          limit,
		Filter:         filter,
		WithPayload:    &qdrant.WithPayloadSelector{SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("Qdrantでのベクトル検索に失敗: %w", err)
	}

	results := make([]models.SimilarAnalysis, 0, len(searchResult.GetResult()))
	for _, point := range searchResult.GetResult() {
		p := point.GetPayload()
		results = append(results, models.SimilarAnalysis{
			AnalysisID:     getStringFromPayload(p, "analysis_id"),
			CandidateID:    getStringFromPayload(p, "candidate_id"),
			CandidateName:  getStringFromPayload(p, "candidate_name"),
			TotalScore:     int(getFloatFromPayload(p, "total_score")),
			WeightedScore:  getFloatFromPayload(p, "weighted_score"),
			Recommendation: getStringFromPayload(p, "recommendation"),
			Summary:        getStringFromPayload(p, "text"),
			Similarity:     point.GetScore(),
		})
	}
	log.Printf("[Qdrant] '%s' に類似した %d 件の分析を取得しました。", query, len(results))
	return results, nil
}

// analysisSummaryText 埋め込み用の分析要約テキスト
func analysisSummaryText(a *dynamics.FinalAnalysis) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Candidate %s. Total %d/100, weighted %.2f. Recommendation: %s.\n",
		a.CandidateName, a.TotalScore, a.WeightedScore, a.Recommendation)
	fmt.Fprintf(&sb, "Confidence trend %s, speech pace %s.\n", a.Patterns.ConfidenceTrend.Direction, a.SpeechPace)
	for _, score := range a.OrderedScores() {
		fmt.Fprintf(&sb, "%s: %d/10. %s\n", score.Criterion, score.Score, score.Explanation)
	}
	return sb.String()
}

// pointID 分析IDがUUIDでなければ名前ベースのUUIDに変換する
func pointID(analysisID string) string {
	if _, err := uuid.Parse(analysisID); err == nil {
		return analysisID
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(analysisID)).String()
}

func keywordCondition(key, keyword string) *qdrant.Condition {
	return &qdrant.Condition{
		ConditionOneOf: &qdrant.Condition_Field{
			Field: &qdrant.FieldCondition{
				Key: key,
				Match: &qdrant.Match{
					MatchValue: &qdrant.Match_Keyword{Keyword: keyword},
				},
			},
		},
	}
}

func toPayload(metadata map[string]interface{}) map[string]*qdrant.Value {
	payload := make(map[string]*qdrant.Value, len(metadata))
	for key, value := range metadata {
		switch v := value.(type) {
		case string:
			payload[key] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: v}}
		case int:
			payload[key] = &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(v)}}
		case int64:
			payload[key] = &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: v}}
		case float64:
			payload[key] = &qdrant.Value{Kind: &qdrant.Value_DoubleValue{DoubleValue: v}}
		case bool:
			payload[key] = &qdrant.Value{Kind: &qdrant.Value_BoolValue{BoolValue: v}}
		}
	}
	return payload
}

// ヘルパー関数: Payloadから文字列を取得
func getStringFromPayload(payload map[string]*qdrant.Value, key string) string {
	if val, ok := payload[key]; ok && val != nil {
		return val.GetStringValue()
	}
	return ""
}

// ヘルパー関数: Payloadから数値を取得
func getFloatFromPayload(payload map[string]*qdrant.Value, key string) float64 {
	if val, ok := payload[key]; ok && val != nil {
		if doubleVal := val.GetDoubleValue(); doubleVal != 0 {
			return doubleVal
		}
		if intVal := val.GetIntegerValue(); intVal != 0 {
			return float64(intVal)
		}
	}
	return 0
}
