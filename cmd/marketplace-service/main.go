package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/AgriDirect/AgriDirect/internal/common/config"
	"github.com/AgriDirect/AgriDirect/internal/common/database"
	"github.com/AgriDirect/AgriDirect/internal/common/logger"
	"github.com/AgriDirect/AgriDirect/internal/common/middleware"
	"github.com/AgriDirect/AgriDirect/internal/common/server"
	"github.com/AgriDirect/AgriDirect/internal/common/tracing"
	"github.com/AgriDirect/AgriDirect/internal/delivery"
	"github.com/AgriDirect/AgriDirect/internal/listing"
	"github.com/AgriDirect/AgriDirect/internal/notify"
	"github.com/AgriDirect/AgriDirect/internal/offer"
	"github.com/AgriDirect/AgriDirect/internal/order"
	"github.com/AgriDirect/AgriDirect/internal/user"
	"github.com/gin-gonic/gin"
)

func main() {
	var (
		confPath  = flag.String("conf", "", "path to json config file")
		consulKey = flag.String("consul-key", "", "load config from consul kv instead of file")
	)
	flag.Parse()

	cfg, err := loadConfig(*confPath, *consulKey)
	if err != nil {
		panic(fmt.Sprintf("load config: %v", err))
	}

	log, err := logger.New(logger.Options{
		Driver: cfg.Log.Driver,
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
		Path:   cfg.Log.Path,
	})
	if err != nil {
		panic(fmt.Sprintf("init logger: %v", err))
	}

	_, closer, err := tracing.InitTracer(cfg.Server.Name, cfg.Jaeger)
	if err != nil {
		log.Warnf("tracer init failed, tracing disabled: %v", err)
	} else {
		defer closer.Close()
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	if err := db.AutoMigrate(
		&user.User{},
		&listing.Listing{},
		&offer.Offer{},
		&order.Order{},
	); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}

	userRepo := user.NewRepo(db)
	listingRepo := listing.NewRepo(db)
	offerRepo := offer.NewRepo(db)
	orderRepo := order.NewRepo(db)

	userSvc := user.NewService(userRepo, cfg.Auth)
	listingSvc := listing.NewService(listingRepo)
	offerSvc := offer.NewService(db, offerRepo, listingRepo)
	orderSvc := order.NewService(db, orderRepo, listingRepo, userRepo)
	notifier := notify.NewService(notify.NewLogSender(log), log)
	broker := delivery.NewBroker(orderRepo, userRepo, notifier, cfg.OTP.Digits, log)

	userH := user.NewHandler(userSvc)
	listingH := listing.NewHandler(listingSvc)
	offerH := offer.NewHandler(offerSvc)
	orderH := order.NewHandler(orderSvc, userSvc)
	driverH := delivery.NewHandler(broker, orderSvc)

	register := func(r *gin.Engine) error {
		authn := middleware.JWTAuth(cfg.Auth, log)

		auth := r.Group("/api/auth")
		{
			auth.POST("/signup", userH.Signup)
			auth.POST("/login", middleware.LoginThrottle(time.Minute, 10), userH.Login)
		}

		farmer := r.Group("/api/farmer", authn, middleware.RequireRole(user.RoleFarmer))
		{
			farmer.POST("/add", listingH.Create)
			farmer.GET("/my-listings", listingH.MyListings)
			farmer.PUT("/update/:id", listingH.Update)
			farmer.DELETE("/:id", listingH.Delete)
		}

		buyer := r.Group("/api/buyer", authn, middleware.RequireRole(user.RoleBuyer))
		{
			buyer.GET("/listings", listingH.Browse)
			buyer.GET("/listings/:id", listingH.Get)
			buyer.POST("/offers", offerH.Submit)
		}

		offers := r.Group("/api/offers", authn)
		{
			offers.GET("/my", middleware.RequireRole(user.RoleBuyer), offerH.My)
			offers.GET("/farmer", middleware.RequireRole(user.RoleFarmer), offerH.Farmer)
			offers.PATCH("/:id/counter", middleware.RequireRole(user.RoleFarmer), offerH.FarmerCounter)
			offers.PATCH("/:id/accept", middleware.RequireRole(user.RoleFarmer), offerH.FarmerAccept)
			offers.PATCH("/:id/reject", middleware.RequireRole(user.RoleFarmer), offerH.FarmerReject)
			offers.PATCH("/:id/buyer-accept", middleware.RequireRole(user.RoleBuyer), offerH.BuyerAccept)
			offers.PATCH("/:id/buyer-reject", middleware.RequireRole(user.RoleBuyer), offerH.BuyerReject)
			offers.PATCH("/buyer/counter", middleware.RequireRole(user.RoleBuyer), offerH.BuyerCounter)
			offers.DELETE("/:id", middleware.RequireRole(user.RoleBuyer), offerH.Remove)
		}

		orders := r.Group("/api/orders", authn)
		{
			orders.GET("/my-orders", middleware.RequireRole(user.RoleBuyer), orderH.MyOrders)
			orders.GET("/my-farmer-orders", middleware.RequireRole(user.RoleFarmer), orderH.MyFarmerOrders)
			orders.GET("/drivers", middleware.RequireRole(user.RoleFarmer), orderH.Drivers)
			orders.GET("/:id", orderH.Get)
			orders.GET("/:id/receipt", orderH.Receipt)
			orders.PATCH("/:id/pay", middleware.RequireRole(user.RoleBuyer), orderH.Pay)
			orders.PUT("/:id/cancel", middleware.RequireRole(user.RoleBuyer), orderH.Cancel)
			orders.PATCH("/:id/assign-driver", middleware.RequireRole(user.RoleFarmer), orderH.AssignDriver)
			orders.PATCH("/:id/verify-otp", middleware.RequireRole(user.RoleDriver), orderH.VerifyOTP)
			orders.PATCH("/:id/release-payment", orderH.ReleasePayment)
		}

		driver := r.Group("/api/driver", authn, middleware.RequireRole(user.RoleDriver))
		{
			driver.GET("/available", driverH.Available)
			driver.GET("/my-deliveries", driverH.MyDeliveries)
			driver.PATCH("/accept/:id", driverH.Accept)
			driver.PATCH("/decline/:id", driverH.Decline)
			driver.PATCH("/complete/:id", driverH.Complete)
		}

		return nil
	}

	if err := server.RunHTTPServer(cfg, log, register); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}

func loadConfig(confPath, consulKey string) (*config.Config, error) {
	if consulKey != "" {
		base := config.GetConfig()
		return config.LoadConfigFromConsulKV(base.Consul.Host, base.Consul.Port, consulKey)
	}
	return config.LoadConfig(confPath)
}
