package router

import (
	"github.com/gin-gonic/gin"

	"github.com/Darkzarich/Smiler-sub000/internal/handlers"
	"github.com/Darkzarich/Smiler-sub000/internal/middleware"
	"github.com/Darkzarich/Smiler-sub000/internal/models"
	"github.com/Darkzarich/Smiler-sub000/internal/services"
	"github.com/Darkzarich/Smiler-sub000/internal/store"
	"github.com/Darkzarich/Smiler-sub000/internal/utils"
)

// RegisterRoutes wires the services and mounts the JSON API.
func RegisterRoutes(r *gin.Engine, stores *store.Stores, cache *utils.Cache) {
	authHandler := handlers.NewAuthHandler(services.NewUserService(stores))
	postHandler := handlers.NewPostHandler(services.NewPostService(stores, cache))
	commentHandler := handlers.NewCommentHandler(services.NewCommentService(stores))
	voteHandler := handlers.NewVoteHandler(services.NewRatingService(stores))

	r.Use(middleware.LoadUser(stores.Users))

	api := r.Group("/api")
	{
		api.POST("/auth/signup", authHandler.Register)
		api.POST("/auth/login", authHandler.Login)
		api.POST("/auth/logout", authHandler.Logout)
		api.GET("/users/:id", authHandler.Profile)

		api.GET("/posts", postHandler.List)
		api.GET("/posts/:slug", postHandler.Get)
		api.GET("/comments", commentHandler.List)
	}

	authorized := r.Group("/api")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.POST("/posts", postHandler.Create)
		authorized.DELETE("/posts/:id", postHandler.Delete)

		authorized.PUT("/posts/:id/vote", voteHandler.Vote(models.TargetPost))
		authorized.DELETE("/posts/:id/vote", voteHandler.Unvote(models.TargetPost))
		authorized.PUT("/comments/:id/vote", voteHandler.Vote(models.TargetComment))
		authorized.DELETE("/comments/:id/vote", voteHandler.Unvote(models.TargetComment))

		authorized.POST("/comments", commentHandler.Create)
		authorized.PUT("/comments/:id", commentHandler.Edit)
		authorized.DELETE("/comments/:id", commentHandler.Delete)
	}
}
