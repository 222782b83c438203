package api

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"github.com/hyepartners-gmail/message-testing-api/api/controllers"
	"github.com/hyepartners-gmail/message-testing-api/api/transport"
	"github.com/hyepartners-gmail/message-testing-api/logging"
	"github.com/hyepartners-gmail/message-testing-api/storage"
	"github.com/hyepartners-gmail/message-testing-api/voting"
)

type Server struct {
	config *Config
}

func NewServer(config *Config) *Server {
	return &Server{
		config: config,
	}
}

func (s *Server) Start() {
	r := transport.NewRouter(gin.DebugMode)

	messageStorage, pairStorage, voteStorage, dedupStorage, idempotencyStorage, counterStorage := s.buildStorages()

	// The engine and query service own all core semantics; controllers only
	// translate HTTP.
	engine := voting.NewEngine(messageStorage, voteStorage, dedupStorage, idempotencyStorage, counterStorage)
	results := voting.NewResults(counterStorage)

	//Register controllers
	votingController := controllers.NewVotingController(engine, results)
	votingController.RegisterRoutes(r)
	adminController := controllers.NewAdminController(messageStorage, pairStorage)
	adminController.RegisterRoutes(r)
	metaController := controllers.NewMessageMetaController(messageStorage, pairStorage)
	metaController.RegisterRoutes(r)

	//Do not run lambda helper locally
	if os.Getenv("APP_ENV") == "local" {
		startLocal(r, s.config.Port)
	} else {
		startLambda(r)
	}
}

func (s *Server) buildStorages() (storage.MessageStorage, storage.PairStorage, storage.VoteStorage,
	storage.DedupStorage, storage.IdempotencyStorage, storage.CounterStorage) {
	ttl := time.Duration(s.config.IdempotencyTTLHours) * time.Hour

	if s.config.Backend == "memory" {
		logging.Log.Warn("using in-memory storage, nothing will survive a restart")
		return storage.NewMemoryMessageStorage(),
			storage.NewMemoryPairStorage(),
			storage.NewMemoryVoteStorage(),
			storage.NewMemoryDedupStorage(),
			storage.NewMemoryIdempotencyStorage(ttl),
			storage.NewMemoryCounterStorage()
	}

	cfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		logging.Log.Errorf("failed to load AWS config: %v", err)
		panic("failed to load AWS config")
	}

	dynamoClient := dynamodb.NewFromConfig(cfg)

	return &storage.DynamoMessageStorage{Client: dynamoClient, TableName: s.config.TableNameMessages},
		&storage.DynamoPairStorage{Client: dynamoClient, TableName: s.config.TableNamePairs},
		&storage.DynamoVoteStorage{Client: dynamoClient, TableName: s.config.TableNameVotes},
		&storage.DynamoDedupStorage{Client: dynamoClient, TableName: s.config.TableNameDedup},
		&storage.DynamoIdempotencyStorage{Client: dynamoClient, TableName: s.config.TableNameIdempotency, TTL: ttl},
		&storage.DynamoCounterStorage{Client: dynamoClient, TableName: s.config.TableNameCounters}
}

// startLambda sets up for AWS Lambda
func startLambda(engine *gin.Engine) {
	ginLambda := ginadapter.NewV2(engine)

	handler := func(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		logging.Log.Infof("Lambda handler triggered on path: %s", req.RawPath)
		return ginLambda.ProxyWithContext(ctx, req)
	}

	logging.Log.Info("Starting lambda")
	lambda.Start(handler)
}

// startLocal starts a normal HTTP server
func startLocal(engine *gin.Engine, port int) {
	logging.Log.Info(fmt.Sprintf("Starting server on http://localhost:%d", port))

	if err := engine.Run(fmt.Sprintf(":%d", port)); err != nil {
		logging.Log.Fatalf("Failed to run server: %v", err)
	}
}
