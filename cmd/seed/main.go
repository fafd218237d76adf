package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/ikkim/bizreview-backend/config"
	"github.com/ikkim/bizreview-backend/internal/app/model"
	"github.com/ikkim/bizreview-backend/internal/app/repository"
	"github.com/ikkim/bizreview-backend/internal/app/service"
	"github.com/ikkim/bizreview-backend/internal/db"
	"github.com/ikkim/bizreview-backend/internal/storage"
	"github.com/ikkim/bizreview-backend/pkg/logger"
	"github.com/ikkim/bizreview-backend/pkg/util"
	"github.com/spf13/cobra"
	"github.com/xuri/excelize/v2"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "BizReview 데이터 시드 도구",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Initialize(logger.Config{Level: "info", Format: "console", EnableColor: true})
		},
	}
	cmd.AddCommand(companiesCmd(), templatesCmd(), tokenCmd())
	return cmd
}

// connect 설정 로드 후 DB 연결
func connect() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := db.Initialize(&cfg.Database); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return cfg, nil
}

func companiesCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "companies <xlsx_file_path>",
		Short: "XLSX 파일에서 회사 목록 가져오기",
		Long: `첫 번째 시트의 첫 행은 헤더로 간주합니다.
컬럼 순서: 회사명, 도시, 주소, 연락처, 웹사이트, 소개`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			companies, err := readCompaniesFromXLSX(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Total companies to import: %d\n", len(companies))

			if !yes {
				// 사용자 확인
				fmt.Print("Do you want to proceed with the import? (yes/no): ")
				var confirm string
				fmt.Scanln(&confirm)
				if confirm != "yes" && confirm != "y" {
					fmt.Println("Import cancelled.")
					return nil
				}
			}

			cfg, err := connect()
			if err != nil {
				return err
			}
			defer db.Close()

			files := storage.NewLocalStorage(cfg.Storage.LocalDir, cfg.Storage.LocalBaseURL)
			imported, err := service.NewCompanyService(db.GetDB(), files).ImportCompanies(companies)
			if err != nil {
				return err
			}
			fmt.Printf("Import completed successfully! Total companies imported: %d\n", imported)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "확인 없이 바로 가져오기")
	return cmd
}

func templatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "기본 이메일 템플릿 생성 (기존 템플릿은 유지)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := connect(); err != nil {
				return err
			}
			defer db.Close()
			return db.SeedEmailTemplates(db.GetDB())
		},
	}
}

func tokenCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "개발용 JWT 발급",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := connect()
			if err != nil {
				return err
			}
			defer db.Close()

			if cfg.Server.Environment == "production" {
				return fmt.Errorf("token command is disabled in production")
			}

			user, err := repository.NewUserRepository(db.GetDB()).FindByEmail(email)
			if err != nil {
				return fmt.Errorf("user %s not found: %w", email, err)
			}
			tokens, err := util.GenerateTokenPair(
				user.ID,
				user.Email,
				string(user.Role),
				cfg.JWT.Secret,
				cfg.JWT.AccessTokenExpiry,
				cfg.JWT.RefreshTokenExpiry,
			)
			if err != nil {
				return err
			}
			fmt.Println(tokens.AccessToken)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "토큰을 발급할 사용자 이메일")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func readCompaniesFromXLSX(filePath string) ([]model.Company, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	// 첫 번째 시트 이름 가져오기
	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("no sheets found in XLSX file")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no data found in XLSX file")
	}

	return parseCompanyRows(rows[1:]), nil
}

// parseCompanyRows 헤더를 제외한 행을 회사 모델로 변환 (중복, 빈 이름 제외)
func parseCompanyRows(rows [][]string) []model.Company {
	var companies []model.Company
	seen := make(map[string]bool)       // 중복 제거용
	slugCounter := make(map[string]int) // slug 중복 처리용
	skipped := 0

	for _, row := range rows {
		name := cell(row, 0)
		city := cell(row, 1)
		if name == "" {
			skipped++
			continue
		}

		key := strings.ToLower(name + "|" + city)
		if seen[key] {
			skipped++
			continue
		}
		seen[key] = true

		// 같은 배치 안에서는 DB 조회로 slug 중복을 확인할 수 없으므로 미리 생성
		slug := model.GenerateSlug(city, name)
		if count, exists := slugCounter[slug]; exists {
			slugCounter[slug] = count + 1
			slug = fmt.Sprintf("%s-%d", slug, count+1)
		} else {
			slugCounter[slug] = 1
		}

		companies = append(companies, model.Company{
			Name:        name,
			Slug:        slug,
			City:        city,
			Address:     cell(row, 2),
			PhoneNumber: cell(row, 3),
			Website:     cell(row, 4),
			Description: cell(row, 5),
			IsActive:    true,
		})
	}

	fmt.Printf("Summary: valid=%d skipped=%d\n", len(companies), skipped)
	return companies
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
