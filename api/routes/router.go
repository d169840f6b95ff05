package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/prodflow-backend/api/controllers"
	"github.com/angelmondragon/prodflow-backend/api/middleware"
	"github.com/angelmondragon/prodflow-backend/internal/externaljobs"
	"github.com/angelmondragon/prodflow-backend/internal/hierarchy"
	"github.com/angelmondragon/prodflow-backend/internal/importer"
	"github.com/angelmondragon/prodflow-backend/internal/notifications"
	"github.com/angelmondragon/prodflow-backend/internal/orders"
	"github.com/angelmondragon/prodflow-backend/internal/workflowrules"
	"github.com/angelmondragon/prodflow-backend/pkg/config"
	"github.com/angelmondragon/prodflow-backend/pkg/enums"
	"github.com/angelmondragon/prodflow-backend/pkg/logger"
	"github.com/angelmondragon/prodflow-backend/pkg/redis"
)

// Services bundles everything the router wires into handlers.
type Services struct {
	Orders        orders.Service
	Workflow      orders.Workflow
	ExternalJobs  externaljobs.Service
	Notifications notifications.Service
	WorkflowRules workflowrules.Service
	Hierarchy     hierarchy.Service
	ExcelImport   *importer.ExcelService
	Sync          *importer.SyncService
}

// HealthDeps lists the dependencies the readiness probe pings.
type HealthDeps struct {
	DB    controllers.Pinger
	Redis controllers.Pinger
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	redisClient *redis.Client,
	health HealthDeps,
	services Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    health.DB,
			"redis": health.Redis,
		}))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrderList(services.Orders, logg))
			r.Post("/", controllers.OrderCreate(services.Orders, logg))
			r.Route("/{orderId}", func(r chi.Router) {
				r.Get("/", controllers.OrderDetail(services.Orders, logg))
				r.Patch("/", controllers.OrderUpdate(services.Orders, logg))
				r.With(middleware.RequireElevated(logg)).Delete("/", controllers.OrderDelete(services.Orders, logg))
				r.Get("/history", controllers.OrderHistory(services.Orders, logg))

				r.Post("/status", controllers.OrderChangeStatus(services.Workflow, logg))
				r.Post("/send-back", controllers.OrderSendBack(services.Workflow, logg))
				r.Post("/take", controllers.OrderTake(services.Workflow, logg))
				r.Post("/return-to-queue", controllers.OrderReturnToQueue(services.Workflow, logg))
				r.Post("/assign-engineer", controllers.OrderAssignEngineer(services.Workflow, logg))
				r.Delete("/assign-engineer", controllers.OrderClearEngineer(services.Workflow, logg))
				r.Post("/assign-manager", controllers.OrderAssignManager(services.Workflow, logg))
				r.Delete("/assign-manager", controllers.OrderClearManager(services.Workflow, logg))

				r.Put("/checklist/{itemId}", controllers.OrderChecklistSet(services.Orders, logg))

				r.Route("/comments", func(r chi.Router) {
					r.Get("/", controllers.OrderCommentList(services.Orders, logg))
					r.Post("/", controllers.OrderCommentCreate(services.Orders, logg))
					r.Delete("/{commentId}", controllers.OrderCommentDelete(services.Orders, logg))
				})
				r.Route("/attachments", func(r chi.Router) {
					r.Get("/", controllers.OrderAttachmentList(services.Orders, logg))
					r.Post("/", controllers.OrderAttachmentCreate(services.Orders, logg))
					r.Delete("/{attachmentId}", controllers.OrderAttachmentDelete(services.Orders, logg))
				})
				r.Route("/jobs", func(r chi.Router) {
					r.Get("/", controllers.ExternalJobListByOrder(services.ExternalJobs, logg))
					r.Post("/", controllers.ExternalJobCreate(services.ExternalJobs, logg))
				})
			})
		})

		r.Route("/jobs/{jobId}", func(r chi.Router) {
			r.Get("/", controllers.ExternalJobDetail(services.ExternalJobs, logg))
			r.Patch("/", controllers.ExternalJobUpdate(services.ExternalJobs, logg))
			r.Delete("/", controllers.ExternalJobDelete(services.ExternalJobs, logg))
			r.Post("/status", controllers.ExternalJobChangeStatus(services.ExternalJobs, logg))
			r.Post("/partner-response", controllers.ExternalJobPartnerResponse(services.ExternalJobs, logg))
			r.Get("/history", controllers.ExternalJobHistory(services.ExternalJobs, logg))
			r.Route("/attachments", func(r chi.Router) {
				r.Get("/", controllers.ExternalJobAttachmentList(services.ExternalJobs, logg))
				r.Post("/", controllers.ExternalJobAttachmentCreate(services.ExternalJobs, logg))
				r.Delete("/{attachmentId}", controllers.ExternalJobAttachmentDelete(services.ExternalJobs, logg))
			})
		})

		r.Route("/imports", func(r chi.Router) {
			r.With(middleware.RequireRole(enums.ActorRoleSales, logg)).Post("/excel", controllers.ExcelImport(services.ExcelImport, logg))
			r.With(middleware.RequireElevated(logg)).Post("/accounting/sync", controllers.AccountingSyncNow(services.Sync, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(services.Notifications, logg))
			r.Get("/unread-count", controllers.NotificationUnreadCount(services.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(services.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(services.Notifications, logg))
		})

		r.Route("/workflow-rules", func(r chi.Router) {
			r.Get("/", controllers.WorkflowRulesGet(services.WorkflowRules, logg))
			r.With(middleware.RequireElevated(logg)).Put("/", controllers.WorkflowRulesUpdate(services.WorkflowRules, logg))
		})

		r.Route("/hierarchy", func(r chi.Router) {
			r.Get("/", controllers.HierarchyList(services.Hierarchy, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireElevated(logg))
				r.Post("/levels", controllers.HierarchyLevelCreate(services.Hierarchy, logg))
				r.Delete("/levels/{levelId}", controllers.HierarchyLevelDelete(services.Hierarchy, logg))
				r.Post("/levels/{levelId}/nodes", controllers.HierarchyNodeCreate(services.Hierarchy, logg))
				r.Delete("/nodes/{nodeId}", controllers.HierarchyNodeDelete(services.Hierarchy, logg))
			})
		})
	})

	return r
}
