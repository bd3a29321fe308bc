package handler

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/brahimariani/geant4-api/internal/engine"
	"github.com/brahimariani/geant4-api/internal/geant4"
	"github.com/brahimariani/geant4-api/internal/model"
	"github.com/brahimariani/geant4-api/pkg/response"
)

// EngineHandler exposes the Geant4 installation endpoints.
type EngineHandler struct {
	engine    *engine.Engine
	validator *validator.Validate
}

func NewEngineHandler(eng *engine.Engine, v *validator.Validate) *EngineHandler {
	return &EngineHandler{engine: eng, validator: v}
}

// Status handles GET /api/v1/geant4/status
func (h *EngineHandler) Status(c *fiber.Ctx) error {
	return response.OK(c, h.engine.Status())
}

// Configure handles POST /api/v1/geant4/configure
func (h *EngineHandler) Configure(c *fiber.Ctx) error {
	var req model.ConfigureEngineRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	return response.OK(c, h.engine.Configure(req))
}

// Verify handles GET /api/v1/geant4/verify
func (h *EngineHandler) Verify(c *fiber.Ctx) error {
	status := h.engine.Status()
	verification := status.Verification

	if !verification.Valid {
		return response.OK(c, fiber.Map{
			"status":   "error",
			"message":  "Geant4 verification failed",
			"issues":   verification.Issues,
			"warnings": verification.Warnings,
			"info":     verification.Info,
		})
	}

	return response.OK(c, fiber.Map{
		"status":   "ok",
		"message":  "Geant4 installation verified",
		"warnings": verification.Warnings,
		"info":     verification.Info,
	})
}

// Environment handles GET /api/v1/geant4/environment. It reports the Geant4
// related variables a launched process would see.
func (h *EngineHandler) Environment(c *fiber.Ctx) error {
	status := h.engine.Status()
	env := geant4.Environment{InstallPath: status.InstallPath, DataPath: status.DataPath}

	vars := make(map[string]string)
	for _, kv := range env.Setup() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if strings.HasPrefix(key, "G4") || strings.HasPrefix(key, "GEANT4") || key == "PATH" || key == "LD_LIBRARY_PATH" {
			vars[key] = value
		}
	}

	return response.OK(c, fiber.Map{
		"environment_variables": vars,
		"data_variables":        geant4.DataVars,
	})
}

// BuildInstructions handles GET /api/v1/geant4/build-instructions
func (h *EngineHandler) BuildInstructions(c *fiber.Ctx) error {
	return response.OK(c, fiber.Map{
		"title": "Building the Geant4 API Application",
		"prerequisites": []string{
			"Geant4 11.x installed (https://geant4.web.cern.ch/)",
			"CMake 3.16 or higher",
			"C++ compiler (MSVC on Windows, GCC/Clang on Linux/Mac)",
		},
		"steps": fiber.Map{
			"windows": []string{
				"1. Open Developer Command Prompt for VS",
				"2. Set Geant4 environment:",
				"   call C:\\Geant4\\geant4-v11.2.0-install\\bin\\geant4.bat",
				"3. Create build directory:",
				"   cd path\\to\\your\\app",
				"   mkdir build && cd build",
				"4. Configure with CMake:",
				"   cmake .. -G \"Visual Studio 17 2022\" -A x64",
				"5. Build:",
				"   cmake --build . --config Release",
				"6. Executable will be at: build/Release/geant4api.exe",
			},
			"linux": []string{
				"1. Source Geant4 environment:",
				"   source /opt/geant4/geant4-v11.2.0-install/bin/geant4.sh",
				"2. Create build directory:",
				"   cd path/to/your/app",
				"   mkdir build && cd build",
				"3. Configure with CMake:",
				"   cmake ..",
				"4. Build:",
				"   make -j$(nproc)",
				"5. Executable will be at: build/geant4api",
			},
		},
		"configuration": fiber.Map{
			"description": "After building, configure the API to use your executable:",
			"endpoint":    "POST /api/v1/geant4/configure",
			"example": fiber.Map{
				"install_path":    "/opt/geant4/geant4-v11.2.0-install",
				"executable_path": "/home/user/geant4app/build/geant4api",
			},
		},
	})
}
