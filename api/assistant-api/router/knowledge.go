package assistant_routers

import (
	"github.com/gin-gonic/gin"

	knowledgeApi "github.com/cartlineai/api/assistant-api/api/knowledge"
	"github.com/cartlineai/config"
	"github.com/cartlineai/pkg/commons"
	"github.com/cartlineai/pkg/connectors"
)

// KnowledgeApiRoute mounts the vector-store ops surface: semantic search,
// ingestion triggers and store purges.
func KnowledgeApiRoute(
	cfg *config.AppConfig, engine *gin.Engine, logger commons.Logger,
	redis connectors.RedisConnector,
	opensearch connectors.OpenSearchConnector) {
	api := knowledgeApi.NewKnowledgeApi(cfg, logger, redis, opensearch)

	apiv1 := engine.Group("v1/knowledge")
	{
		apiv1.POST("/documents/search", api.SearchDocuments)
		apiv1.POST("/products/search", api.SearchProducts)
		apiv1.POST("/search", api.Search)
		apiv1.GET("/stores", api.Stores)

		apiv1.POST("/ingest/products", api.IngestProducts)
		apiv1.POST("/ingest/page", api.IngestPage)
		apiv1.DELETE("/stores/:store", api.DeleteStore)
	}
}
