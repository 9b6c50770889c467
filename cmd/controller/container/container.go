package container

import (
	"github.com/nfvmesh/sfcd/cmd/controller/service"
	"github.com/nfvmesh/sfcd/common/bootstrap"
	"github.com/nfvmesh/sfcd/common/clients"
	"github.com/nfvmesh/sfcd/common/repository"
)

// Container holds all initialized services and repositories (singleton pattern)
type Container struct {
	Components *bootstrap.Components

	// Repositories
	ChainRepo     *repository.ChainRepository
	ApplianceRepo *repository.ApplianceRepository
	StepRepo      *repository.ChainStepRepository
	InstanceRepo  *repository.StepInstanceRepository
	DeltaRepo     *repository.DeltaRepository

	// Services
	DeltaService     *service.DeltaService
	CatchupService   *service.CatchupService
	ChainService     *service.ChainService
	ApplianceService *service.ApplianceService
	StepService      *service.ChainStepService
	InstanceService  *service.StepInstanceService
	VlanAllocator    *service.VlanAllocator
	Launcher         *service.Launcher
}

// NewContainer initializes all services and repositories once
func NewContainer(components *bootstrap.Components) (*Container, error) {
	// Repositories
	chainRepo := repository.NewChainRepository(components.DB)
	applianceRepo := repository.NewApplianceRepository(components.DB)
	stepRepo := repository.NewChainStepRepository(components.DB)
	instanceRepo := repository.NewStepInstanceRepository(components.DB)
	deltaRepo := repository.NewDeltaRepository(components.DB)

	// Services (bottom-up: dependencies first)
	deltaService := service.NewDeltaService(deltaRepo, components.Bus, components.Logger)
	catchupService := service.NewCatchupService(deltaRepo, components.Logger)
	chainService := service.NewChainService(components.DB, chainRepo, deltaService, components.Logger)
	applianceService := service.NewApplianceService(components.DB, applianceRepo, deltaService, components.Logger)
	stepService := service.NewChainStepService(components.DB, stepRepo, chainRepo, applianceRepo, deltaService, components.Logger)
	instanceService := service.NewStepInstanceService(components.DB, instanceRepo, deltaService, components.Logger)

	vlanAllocator := service.NewVlanAllocator(
		instanceRepo,
		components.Config.Vlan.Start,
		components.Config.Vlan.End,
		components.Logger,
	)

	computeClient := clients.NewHTTPComputeClient(components.Config)

	launcher := service.NewLauncher(
		chainRepo,
		stepRepo,
		applianceRepo,
		instanceService,
		vlanAllocator,
		computeClient,
		service.NewSelector(),
		components.Config.Launch,
		components.Logger,
	)

	return &Container{
		Components:       components,
		ChainRepo:        chainRepo,
		ApplianceRepo:    applianceRepo,
		StepRepo:         stepRepo,
		InstanceRepo:     instanceRepo,
		DeltaRepo:        deltaRepo,
		DeltaService:     deltaService,
		CatchupService:   catchupService,
		ChainService:     chainService,
		ApplianceService: applianceService,
		StepService:      stepService,
		InstanceService:  instanceService,
		VlanAllocator:    vlanAllocator,
		Launcher:         launcher,
	}, nil
}
