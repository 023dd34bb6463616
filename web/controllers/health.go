package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

func (a *App) Health(c *gin.Context) {
	out := gin.H{"status": "ok"}

	if v, err := mem.VirtualMemory(); err == nil {
		out["mem_used_percent"] = v.UsedPercent
	}
	if l, err := load.Avg(); err == nil {
		out["load1"] = l.Load1
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		if err := sqlDB.Ping(); err != nil {
			out["status"] = "degraded"
			out["db"] = "unreachable"
		}
	}

	c.JSON(http.StatusOK, out)
}
