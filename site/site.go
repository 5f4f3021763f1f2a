package site

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"nexuslab/common"
	"nexuslab/models"
)

// SiteModule serves the public, anonymous surface: page content managed by
// the editor and a sitemap over published posts.
type SiteModule struct {
	db     *gorm.DB
	domain string
}

func NewSiteModule(db *gorm.DB, domain string) *SiteModule {
	return &SiteModule{db: db, domain: domain}
}

func (s *SiteModule) RegisterRoutes(router *gin.Engine) {
	router.GET("/", s.index)
	router.GET("/pages/:page_name", s.getPage)
	router.GET("/sitemap.xml", s.sitemap)
}

func (s *SiteModule) index(c *gin.Context) {
	var page models.WebsiteContent
	if err := s.db.First(&page, "page_name = ?", "home").Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusOK, gin.H{"page_name": "home", "content": gin.H{}})
			return
		}
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *SiteModule) getPage(c *gin.Context) {
	var page models.WebsiteContent
	if err := s.db.First(&page, "page_name = ?", c.Param("page_name")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.WriteError(c, common.ErrNotFound)
			return
		}
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *SiteModule) sitemap(c *gin.Context) {
	domain := strings.TrimSuffix(s.domain, "/")
	if domain == "" {
		domain = "http://localhost"
	}

	var sitemap strings.Builder
	sitemap.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	sitemap.WriteString("\n")
	sitemap.WriteString(`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
	sitemap.WriteString("\n")

	sitemap.WriteString("  <url>\n")
	sitemap.WriteString("    <loc>" + domain + "/</loc>\n")
	sitemap.WriteString("    <changefreq>weekly</changefreq>\n")
	sitemap.WriteString("    <priority>1.0</priority>\n")
	sitemap.WriteString("  </url>\n")

	var pages []models.WebsiteContent
	s.db.Find(&pages)
	for _, page := range pages {
		sitemap.WriteString("  <url>\n")
		sitemap.WriteString("    <loc>" + domain + "/pages/" + page.PageName + "</loc>\n")
		sitemap.WriteString("    <changefreq>weekly</changefreq>\n")
		sitemap.WriteString("    <priority>0.7</priority>\n")
		sitemap.WriteString("  </url>\n")
	}

	var posts []models.Post
	s.db.Where("published = ?", true).Order("created_at DESC").Find(&posts)
	for _, post := range posts {
		sitemap.WriteString("  <url>\n")
		sitemap.WriteString("    <loc>" + domain + "/posts/slug/" + post.Slug + "</loc>\n")
		sitemap.WriteString("    <lastmod>" + post.UpdatedAt.Format(time.RFC3339) + "</lastmod>\n")
		sitemap.WriteString("    <changefreq>monthly</changefreq>\n")
		sitemap.WriteString("    <priority>0.6</priority>\n")
		sitemap.WriteString("  </url>\n")
	}

	sitemap.WriteString("</urlset>\n")

	c.Header("Content-Type", "application/xml")
	c.String(http.StatusOK, sitemap.String())
}
