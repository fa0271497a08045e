package routes

import (
	"time"

	"github.com/gin-gonic/gin"

	"borrowbuddy/app"
	"borrowbuddy/controllers"
)

func RegisterRoutes(r *gin.Engine, a *app.App) {
	s := controllers.GetSrv(a)
	authCtl := controllers.NewAuthController(s)
	itemCtl := controllers.NewItemController(s)
	borrowCtl := controllers.NewBorrowController(s)
	paymentCtl := controllers.NewPaymentController(s)
	feedbackCtl := controllers.NewFeedbackController(s)
	notifCtl := controllers.NewNotificationController(s)
	profileCtl := controllers.NewProfileController(s)
	contactCtl := controllers.NewContactController(s)

	authMW := app.AuthRequired(s.Sessions, s.Repo)
	seenMW := app.TouchLastSeen(s.Repo, a.RDB, 5*time.Minute)

	// ------------------------------
	// Public: account access
	// ------------------------------
	auth := r.Group("/auth")
	{
		auth.POST("/signup", authCtl.Signup)
		auth.POST("/login", authCtl.Login)
		auth.GET("/verify/:token", authCtl.VerifyEmail)
		auth.POST("/resend-verification", authCtl.ResendVerification)
	}
	authed := r.Group("/auth", authMW)
	{
		authed.POST("/logout", authCtl.Logout)
		authed.GET("/whoami", authCtl.WhoAmI)
	}

	// ------------------------------
	// Public: browsing, profiles, contact
	// ------------------------------
	r.GET("/api/items", itemCtl.BrowseItems)
	r.GET("/api/items/featured", itemCtl.FeaturedItems)
	r.GET("/api/items/:id", itemCtl.GetItem)
	r.GET("/users/:username", profileCtl.PublicProfile)
	r.POST("/contact", contactCtl.Submit)

	// QR return link: the token is the authorization.
	r.POST("/return/:token", borrowCtl.ReturnByToken)

	// Gateway callbacks: trusted via signature, not session.
	payments := r.Group("/payments")
	{
		payments.POST("/rental/callback", paymentCtl.RentalCallback)
		payments.POST("/deposit/callback", paymentCtl.DepositCallback)
	}

	// ------------------------------
	// Items (authenticated)
	// ------------------------------
	items := r.Group("/api/items", authMW, seenMW)
	{
		items.POST("", itemCtl.CreateItem)
		items.DELETE("/:id", itemCtl.DeleteItem)
		items.POST("/:id/borrow", borrowCtl.RequestBorrow)
	}

	// ------------------------------
	// Borrow lifecycle
	// ------------------------------
	records := r.Group("/api/records", authMW, seenMW)
	{
		records.GET("/borrowed", borrowCtl.BorrowedItems)
		records.GET("/lended", borrowCtl.LendedItems)
		records.GET("/transactions", borrowCtl.Transactions)

		records.POST("/:id/approve", borrowCtl.Approve)
		records.POST("/:id/reject", borrowCtl.Reject)
		records.POST("/:id/request-deposit", borrowCtl.RequestDeposit)
		records.POST("/:id/pay-deposit", borrowCtl.PayDeposit)
		records.POST("/:id/return", borrowCtl.MarkReturned)
		records.POST("/:id/confirm-return", borrowCtl.ConfirmReturn)
		records.GET("/:id/qr", borrowCtl.ReturnQR)

		records.POST("/:id/feedback", feedbackCtl.Submit)
	}

	// ------------------------------
	// Profile and notifications
	// ------------------------------
	api := r.Group("/api", authMW, seenMW)
	{
		api.GET("/notifications", notifCtl.List)
		api.PUT("/profile", profileCtl.Update)
		api.PUT("/profile/password", profileCtl.ChangePassword)
	}
}
