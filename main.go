package main

import (
	"log"
	"os"
	"time"

	"github.com/Geezkick/Manyani-Rental-System-sub000/routes"
	"github.com/Geezkick/Manyani-Rental-System-sub000/services"
	"github.com/Geezkick/Manyani-Rental-System-sub000/storage"
	"github.com/Geezkick/Manyani-Rental-System-sub000/utils"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

func collectionWindow() time.Duration {
	if raw := os.Getenv("PAYMENT_COLLECTION_WINDOW"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			return d
		}
		log.Printf("ignoring unparsable PAYMENT_COLLECTION_WINDOW=%q", raw)
	}
	return services.DefaultCollectionWindow
}

func main() {
	// Only load .env in development
	if os.Getenv("RENDER") == "" {
		godotenv.Load()
	}

	db := storage.InitializeDB()
	storage.InitializeRedis()

	var gateway services.PaymentGateway
	if os.Getenv("PAYMENT_GATEWAY") == "sandbox" {
		log.Println("PAYMENT_GATEWAY=sandbox, collections are simulated")
		gateway = services.NewSandboxGateway()
	} else {
		gateway = services.NewDarajaGatewayFromEnv()
	}
	notifier := services.LogDispatcher{}
	ledger := services.NewUnitLedger(db)
	bookings := services.NewBookingService(db, notifier)
	payments := services.NewPaymentService(db, gateway, notifier, collectionWindow())
	routes.Setup(bookings, payments, ledger)

	app := iris.New()
	app.Validator = validator.New()

	// CORS configuration
	app.AllowMethods(iris.MethodOptions)
	app.UseRouter(func(ctx iris.Context) {
		ctx.Header("Access-Control-Allow-Origin", ctx.GetHeader("Origin"))
		ctx.Header("Vary", "Origin")
		ctx.Header("Access-Control-Allow-Credentials", "true")
		ctx.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Requested-With")
		ctx.Header("Access-Control-Allow-Methods", "GET,POST,PATCH,PUT,DELETE,OPTIONS")
		if ctx.Method() == iris.MethodOptions {
			ctx.StatusCode(iris.StatusNoContent)
			return
		}
		ctx.Next()
	})

	app.Use(iris.Compression)

	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	accessTokenVerifier.WithDefaultBlocklist()
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} {
		return new(utils.AccessToken)
	})

	app.Get("/health", func(ctx iris.Context) {
		ctx.JSON(iris.Map{"status": "ok"})
	})

	booking := app.Party("/api/bookings", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware)
	{
		booking.Post("/", routes.CreateBooking)
		booking.Get("/", routes.ListBookings)
		booking.Get("/{id:uint}", routes.GetBooking)
		booking.Post("/{id:uint}/approve", utils.ManagerOnlyMiddleware, routes.ApproveBooking)
		booking.Post("/{id:uint}/reject", utils.ManagerOnlyMiddleware, routes.RejectBooking)
		booking.Post("/{id:uint}/move-in", utils.ManagerOnlyMiddleware, routes.MoveInBooking)
		booking.Post("/{id:uint}/complete", utils.ManagerOnlyMiddleware, routes.CompleteBooking)
		booking.Post("/{id:uint}/terminate", utils.ManagerOnlyMiddleware, routes.TerminateBooking)
		booking.Post("/{id:uint}/cancel", routes.CancelBooking)
		booking.Post("/{id:uint}/vacate-notice", routes.SubmitVacateNotice)
		booking.Post("/{id:uint}/renewal", utils.ManagerOnlyMiddleware, routes.OfferRenewal)
		booking.Post("/{id:uint}/renewal/accept", routes.AcceptRenewal)
		booking.Post("/{id:uint}/rent-payment", utils.ManagerOnlyMiddleware, routes.ScheduleNextRent)
		booking.Delete("/{id:uint}", utils.AdminOnlyMiddleware, routes.DeleteBooking)
	}

	payment := app.Party("/api/payments")
	{
		// Gateway delivers confirmations here; no token on this one route.
		payment.Post("/callback", routes.PaymentCallback)

		authed := payment.Party("/", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware)
		authed.Post("/", utils.ManagerOnlyMiddleware, routes.SchedulePayment)
		authed.Get("/", routes.ListPayments)
		authed.Get("/{id:uint}", routes.GetPayment)
		authed.Post("/{id:uint}/collect", routes.CollectPayment)
		authed.Post("/{id:uint}/verify", routes.VerifyPayment)
		authed.Post("/{id:uint}/expire", utils.AdminOnlyMiddleware, routes.ExpirePayment)
		authed.Post("/{id:uint}/cancel", utils.AdminOnlyMiddleware, routes.CancelPayment)
		authed.Post("/{id:uint}/refund", utils.AdminOnlyMiddleware, routes.RefundPayment)
	}

	unit := app.Party("/api/units", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware)
	{
		unit.Get("/{id:uint}", routes.GetUnit)
		unit.Post("/{id:uint}/maintenance", utils.ManagerOnlyMiddleware, routes.StartUnitMaintenance)
		unit.Post("/{id:uint}/maintenance/end", utils.ManagerOnlyMiddleware, routes.EndUnitMaintenance)
		unit.Post("/{id:uint}/release", utils.AdminOnlyMiddleware, routes.ReleaseUnit)
	}

	property := app.Party("/api/properties", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware)
	{
		property.Get("/{id:uint}/units", routes.ListPropertyUnits)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "4000"
	}
	app.Listen(":" + port)
}
